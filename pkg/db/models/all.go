package models

// All lists every persisted model in dependency order, for schema bootstrap on sqlite.
func All() []any {
	return []any{
		&User{},
		&Product{},
		&Cart{},
		&Order{},
		&OrderItem{},
		&Review{},
		&WaitlistEntry{},
	}
}
