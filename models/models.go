package models

// All returns every persisted model, in migration order
func All() []interface{} {
	return []interface{}{
		&Court{},
		&PoliceStation{},
		&Prison{},
		&User{},
		&RefreshToken{},
		&Complaint{},
		&Case{},
		&Assignment{},
		&Decision{},
		&Signification{},
		&Sentence{},
		&Detainee{},
		&Incarceration{},
		&Evidence{},
		&CustodyEntry{},
		&CaseNote{},
		&Hearing{},
		&Warrant{},
		&StatusHistory{},
		&AuditLog{},
		&Notification{},
		&SOSAlert{},
		&SystemSetting{},
	}
}
