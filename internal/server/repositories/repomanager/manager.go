// Package repomanager vends repositories bound to a database handle and runs
// the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/profilekeeper/internal/dbx"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/persons"
	"github.com/dmitrijs2005/profilekeeper/internal/server/repositories/users"
)

// RepositoryManager hands out repositories bound to either the pool or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Persons(db dbx.DBTX) persons.Repository
}
