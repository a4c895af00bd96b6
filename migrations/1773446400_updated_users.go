package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	userCreateRule = `@request.body.role:isset = false || @request.body.role = "musician" || @request.body.role = "venue"`
	userUpdateRule = `id = @request.auth.id && @request.body.role:isset = false`
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		users.Fields.Add(
			&core.SelectField{
				Name:      "role",
				MaxSelect: 1,
				Values:    []string{"musician", "venue", "admin"},
			},
			&core.TextField{
				Name: "phone",
				Max:  32,
			},
		)

		// role is a privilege claim: sign-up may pick musician or venue, and
		// only superusers (who bypass rules) can change it afterwards
		users.CreateRule = types.Pointer(userCreateRule)
		users.UpdateRule = types.Pointer(userUpdateRule)

		return app.Save(users)
	}, func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}

		users.Fields.RemoveByName("role")
		users.Fields.RemoveByName("phone")
		users.CreateRule = types.Pointer("")
		users.UpdateRule = types.Pointer("id = @request.auth.id")

		return app.Save(users)
	})
}
