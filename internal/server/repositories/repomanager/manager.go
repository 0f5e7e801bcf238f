package repomanager

import (
	"context"
	"database/sql"

	"github.com/emsuite/authcore/internal/dbx"
	"github.com/emsuite/authcore/internal/server/repositories/exceptionlogs"
	"github.com/emsuite/authcore/internal/server/repositories/refreshtokens"
	"github.com/emsuite/authcore/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	ExceptionLogs(db dbx.DBTX) exceptionlogs.Repository
}
