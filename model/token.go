package model

// TokenPair is the credential pair handed to a client at login and rotation.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
