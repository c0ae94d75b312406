package config

type TokenConf struct {
	AccessTokenExpiryHour  int
	RefreshTokenExpiryHour int
	AccessTokenSecret      string
	RefreshTokenSecret     string
}

func NewTokenConf() *TokenConf {
	cfg := GetConfig()
	return &TokenConf{
		AccessTokenExpiryHour:  1,
		RefreshTokenExpiryHour: 168,
		AccessTokenSecret:      cfg.Auth.AccessTokenSecret,
		RefreshTokenSecret:     cfg.Auth.RefreshTokenSecret,
	}
}
