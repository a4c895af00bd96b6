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

		venues := core.NewBaseCollection("venues")
		venues.Fields.Add(
			&core.TextField{Name: "name", Required: true, Max: 200},
			&core.RelationField{Name: "owner", CollectionId: users.Id, MaxSelect: 1, Required: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		venues.AddIndex("idx_venues_owner", false, "owner", "")
		if err := app.Save(venues); err != nil {
			return err
		}

		managers := core.NewBaseCollection("venue_managers")
		managers.Fields.Add(
			&core.RelationField{Name: "venue", CollectionId: venues.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "user", CollectionId: users.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "granted_by", CollectionId: users.Id, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		managers.AddIndex("idx_venue_managers_unique", true, "venue, user", "")
		managers.AddIndex("idx_venue_managers_user", false, "user", "")

		return app.Save(managers)
	}, func(app core.App) error {
		for _, name := range []string{"venue_managers", "venues"} {
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
