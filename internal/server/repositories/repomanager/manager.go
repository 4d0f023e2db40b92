package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/mitrasign/internal/dbx"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/mitrasign/internal/server/repositories/signatures"
)

// RepositoryManager vends repositories bound to a DBTX so services can run
// them either directly on the pool or inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Signatures(db dbx.DBTX) signatures.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
