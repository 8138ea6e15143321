package ports

import "github.com/custodix/custodiad/internal/core/domain"

type RepoManager interface {
	Originals() domain.OriginalRepository
	Tokens() domain.TokenRepository
	Requests() domain.RequestRepository
	Settings() domain.SettingsRepository
	Close()
}
