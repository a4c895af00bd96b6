package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		venues, err := app.FindCollectionByNameOrId("venues")
		if err != nil {
			return err
		}

		invitations := core.NewBaseCollection("venue_invitations")
		invitations.Fields.Add(
			&core.RelationField{Name: "venue", CollectionId: venues.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.TextField{Name: "code", Required: true, Min: 8, Max: 8, Pattern: `^[A-HJ-NP-Z2-9]+$`},
			&core.RelationField{Name: "created_by", CollectionId: users.Id, MaxSelect: 1},
			&core.TextField{Name: "musician_name", Max: 200},
			&core.TextField{Name: "musician_email", Max: 255},
			&core.TextField{Name: "musician_phone", Max: 32},
			&core.JSONField{Name: "musician_instruments", MaxSize: 8192},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "accepted"},
			},
			&core.DateField{Name: "expires_at", Required: true},
			&core.RelationField{Name: "accepted_by", CollectionId: users.Id, MaxSelect: 1},
			&core.DateField{Name: "accepted_at"},
			&core.JSONField{Name: "accepted_fields", MaxSize: 8192},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		invitations.AddIndex("idx_venue_invitations_code", true, "code", "")
		invitations.AddIndex("idx_venue_invitations_venue", false, "venue", "")
		if err := app.Save(invitations); err != nil {
			return err
		}

		managerInvitations := core.NewBaseCollection("venue_manager_invitations")
		managerInvitations.Fields.Add(
			&core.RelationField{Name: "venue", CollectionId: venues.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.TextField{Name: "code", Required: true, Min: 8, Max: 8, Pattern: `^[A-HJ-NP-Z2-9]+$`},
			&core.EmailField{Name: "email", Required: true},
			&core.RelationField{Name: "created_by", CollectionId: users.Id, MaxSelect: 1},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "accepted"},
			},
			&core.DateField{Name: "expires_at", Required: true},
			&core.RelationField{Name: "accepted_by", CollectionId: users.Id, MaxSelect: 1},
			&core.DateField{Name: "accepted_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		managerInvitations.AddIndex("idx_venue_manager_invitations_code", true, "code", "")

		return app.Save(managerInvitations)
	}, func(app core.App) error {
		for _, name := range []string{"venue_manager_invitations", "venue_invitations"} {
			collection, err := app.FindCollectionByNameOrId(name)
			if err != nil {
				return err
			}
			if err := app.Delete(collection); err != nil {
				return err
			}
		}
		return nil
	})
}
