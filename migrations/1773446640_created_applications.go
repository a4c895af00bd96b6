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
		slots, err := app.FindCollectionByNameOrId("slots")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("applications")
		collection.Fields.Add(
			&core.RelationField{Name: "gig", CollectionId: gigs.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "slot", CollectionId: slots.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.RelationField{Name: "applicant", CollectionId: users.Id, MaxSelect: 1, Required: true, CascadeDelete: true},
			&core.TextField{Name: "instrument", Required: true, Max: 100},
			&core.SelectField{
				Name:      "status",
				Required:  true,
				MaxSelect: 1,
				Values:    []string{"pending", "accepted", "rejected"},
			},
			&core.DateField{Name: "submitted_at", Required: true},
			&core.DateField{Name: "decided_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// at most one accepted application per slot
		collection.AddIndex("idx_applications_slot_accepted", true, "slot", "status = 'accepted'")
		// one live application per applicant and slot; rejected ones may reapply
		collection.AddIndex("idx_applications_slot_applicant", true, "slot, applicant", "status != 'rejected'")
		collection.AddIndex("idx_applications_gig", false, "gig", "")
		collection.AddIndex("idx_applications_applicant", false, "applicant", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("applications")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
