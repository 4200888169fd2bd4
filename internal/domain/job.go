package domain

// CheckJob is a single URL to check, tagged with its position in the input.
type CheckJob struct {
	Seq int    `json:"seq"`
	URL string `json:"url"`
}

// HeaderAssertion is the optional "Name: Value" check applied to every response.
type HeaderAssertion struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
