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

		collection := core.NewBaseCollection("network_memberships")
		collection.Fields.Add(
			&core.RelationField{Name: "venue", CollectionId: venues.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "musician", CollectionId: users.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "added_by", CollectionId: users.Id, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_network_memberships_unique", true, "venue, musician", "")
		collection.AddIndex("idx_network_memberships_musician", false, "musician", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("network_memberships")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
