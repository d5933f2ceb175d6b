package domain

// CartItem is one domain in a checkout. The domain name is the item's identity
// within a single cart. Price is the display-level unit price per year.
type CartItem struct {
	DomainName string  `json:"domain_name"`
	Price      float64 `json:"price"`
	Currency   string  `json:"currency"`
	Period     int     `json:"period"`
}

// Customer carries the purchaser profile forwarded to the registrar for
// customer and contact creation.
type Customer struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Zip     string `json:"zip"`
}

// RestrictedDomain describes a cart item rejected by the eligibility filter.
type RestrictedDomain struct {
	DomainName string `json:"domain_name"`
	Reason     string `json:"reason"`
}
