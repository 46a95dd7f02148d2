package models

// User represents a user record as served by the upstream API.
type User struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"` // Handle, shown as a badge
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Website  string  `json:"website"`
	Address  Address `json:"address"`
}

// Address is the postal address nested in a User.
type Address struct {
	Street  string `json:"street"`
	Suite   string `json:"suite"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
	Geo     Geo    `json:"geo"`
}

// Geo holds coordinates exactly as the API sends them: decimal strings.
type Geo struct {
	Lat string `json:"lat"`
	Lng string `json:"lng"`
}

// Present reports whether both coordinates are set.
func (g Geo) Present() bool {
	return g.Lat != "" && g.Lng != ""
}
