package constants

const (
	ViewData        = "view_data"
	PlaceBid        = "place_bid"
	CreateListing   = "create_listing"
	ManageListings  = "manage_listings"
	CloseAuction    = "close_auction"
	ManageTemplates = "manage_templates"
	ViewPayments    = "view_payments"
	ReconcileBids   = "reconcile_bids"
	AssignRole      = "assign_role"
	RemoveUser      = "remove_user"
	ListUsers       = "list_users"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:        {User, Admin},
	PlaceBid:        {User, Admin},
	CreateListing:   {User, Admin},
	ManageListings:  {Admin},
	CloseAuction:    {Admin},
	ManageTemplates: {Admin},
	ViewPayments:    {Admin},
	ReconcileBids:   {Admin},
	AssignRole:      {Admin},
	RemoveUser:      {Admin},
	ListUsers:       {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
