package domain

// ErrorResponse is the standard error body returned by the API.
// @Description Standard error body returned by the API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"404"`
	Category string `json:"category" example:"NOT_FOUND"`
	Message  string `json:"message" example:"resource not found: product p1"`
}
