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
		gigs, err := app.FindCollectionByNameOrId("gigs")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("gig_invitations")
		collection.Fields.Add(
			&core.RelationField{Name: "gig", CollectionId: gigs.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.TextField{Name: "instrument", Required: true, Max: 100},
			&core.TextField{Name: "instrument_key", Required: true, Max: 100},
			&core.RelationField{Name: "musician", CollectionId: users.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "invited_by", CollectionId: users.Id, MaxSelect: 1},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)
		collection.AddIndex("idx_gig_invitations_unique", true, "gig, instrument_key, musician", "")
		collection.AddIndex("idx_gig_invitations_musician", false, "musician", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("gig_invitations")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
