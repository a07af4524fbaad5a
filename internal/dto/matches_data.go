// MatchesData is a paginated response payload for the match history.
package dto

type MatchesData struct {
	Matches     []MatchInfo    `json:"matches"`
	Total       int            `json:"total"`
	ByLabel     map[string]int `json:"byLabel"`
	TotalPages  int            `json:"totalPages"`
	CurrentPage int            `json:"currentPage"`
	Limit       int            `json:"pageSize"`
}
