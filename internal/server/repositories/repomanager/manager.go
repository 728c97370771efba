package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/socialgraph/internal/dbx"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/credentials"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/follows"
	"github.com/dmitrijs2005/socialgraph/internal/server/repositories/refreshtokens"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same repository either on the pool or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Follows(db dbx.DBTX) follows.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
