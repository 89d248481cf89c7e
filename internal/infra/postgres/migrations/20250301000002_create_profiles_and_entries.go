package migrations

func init() {
	Migrations.MustRegister(
		execFile("0002_create_profiles_and_entries.up.sql"),
		execFile("0002_create_profiles_and_entries.down.sql"),
	)
}
