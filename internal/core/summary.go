package core

// NoCategory is the name reported when there is nothing to rank.
const NoCategory = "None"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}
