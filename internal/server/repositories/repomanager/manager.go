package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bookdrive/internal/dbx"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/books"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/bookdrive/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Books(db dbx.DBTX) books.Repository
}
