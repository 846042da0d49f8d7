package repomanager

import (
	"context"
	"database/sql"

	"github.com/scsp-app/scsp-server/internal/dbx"
	"github.com/scsp-app/scsp-server/internal/server/repositories/otps"
	"github.com/scsp-app/scsp-server/internal/server/repositories/refreshtokens"
	"github.com/scsp-app/scsp-server/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Otps(db dbx.DBTX) otps.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
