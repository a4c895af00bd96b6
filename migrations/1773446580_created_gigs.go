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

		gigs := core.NewBaseCollection("gigs")
		gigs.Fields.Add(
			&core.RelationField{Name: "owner", CollectionId: users.Id, MaxSelect: 1, Required: true},
			&core.RelationField{Name: "venue", CollectionId: venues.Id, MaxSelect: 1},
			&core.TextField{Name: "title", Required: true, Max: 200},
			&core.TextField{Name: "location", Max: 500},
			&core.DateField{Name: "starts_at"},
			&core.DateField{Name: "ends_at"},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"open", "filled", "cancelled"},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		gigs.AddIndex("idx_gigs_owner", false, "owner", "")
		if err := app.Save(gigs); err != nil {
			return err
		}

		// payment is decimal text so amounts never pass through float64
		slots := core.NewBaseCollection("slots")
		slots.Fields.Add(
			&core.RelationField{Name: "gig", CollectionId: gigs.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.NumberField{Name: "position", OnlyInt: true},
			&core.JSONField{Name: "instruments", MaxSize: 8192},
			&core.BoolField{Name: "invite_only"},
			&core.TextField{Name: "payment", Max: 32, Pattern: `^\d+(\.\d+)?$`},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		slots.AddIndex("idx_slots_gig_position", true, "gig, position", "")

		return app.Save(slots)
	}, func(app core.App) error {
		for _, name := range []string{"slots", "gigs"} {
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
