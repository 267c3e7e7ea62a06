package config

// Policy holds product decisions that are deliberately kept out of the workflow code.
type Policy struct {
	// CustomerSelfCancel lets the owning customer cancel their own placed reservation.
	// Admins can always cancel.
	//
	// Set via env:
	// - RESERVATION_CUSTOMER_CANCEL=true
	CustomerSelfCancel bool

	// OwnerScopedAdmin restricts cake/ingredient mutations to the admin recorded in admin_id.
	// Off by default: admin_id is provenance only and any admin may operate on any cake or ingredient.
	//
	// Set via env:
	// - OWNER_SCOPED_ADMIN=true
	OwnerScopedAdmin bool
}

func LoadPolicy() Policy {
	return Policy{
		CustomerSelfCancel: boolFromEnv("RESERVATION_CUSTOMER_CANCEL"),
		OwnerScopedAdmin:   boolFromEnv("OWNER_SCOPED_ADMIN"),
	}
}
