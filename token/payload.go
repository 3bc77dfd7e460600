package token

// Token type discriminators. Every minted token carries exactly one of
// these in its payload and verification requires the caller to name which
// one it expects.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Payload is the claim set shared by both token types. A pair minted by
// GenTokenPair embeds the same snapshot in each token so sessionID,
// fingerprint and roles always agree between them.
type Payload struct {
	SessionID   string   `json:"sessionId"`
	UserID      string   `json:"userId"`
	Email       string   `json:"email,omitempty"`
	Name        string   `json:"name,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Fingerprint string   `json:"fingerprint,omitempty"`
}

// Pair holds one access token and one refresh token issued from a single
// payload snapshot.
type Pair struct {
	AccessToken  string
	RefreshToken string
}
