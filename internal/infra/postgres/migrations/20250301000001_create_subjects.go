package migrations

func init() {
	Migrations.MustRegister(
		execFile("0001_create_subjects.up.sql"),
		execFile("0001_create_subjects.down.sql"),
	)
}
