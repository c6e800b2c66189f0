package repomanager

import (
	"context"
	"database/sql"

	"github.com/adb/usermgmt/internal/dbx"
	"github.com/adb/usermgmt/internal/server/repositories/loginattempts"
	"github.com/adb/usermgmt/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	LoginAttempts(db dbx.DBTX) loginattempts.Repository
}
