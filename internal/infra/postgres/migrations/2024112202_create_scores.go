package migrations

import _ "embed"

//go:embed 0002_create_scores.sql
var createScoresSQL string

func init() {
	Migrations.MustRegister(
		execSQL(createScoresSQL),
		execSQL(`DROP TABLE IF EXISTS scores; DROP TABLE IF EXISTS users`),
	)
}
