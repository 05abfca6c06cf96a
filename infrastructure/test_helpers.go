package infrastructure

import (
	"github.com/FJNU-NISA/WelcomeSystem/database"
	"github.com/FJNU-NISA/WelcomeSystem/domain/interfaces"
	"github.com/FJNU-NISA/WelcomeSystem/repository"
)

// TestUnitOfWorkFactory creates units of work that all flush into one
// publisher, typically a LocalEventBus the test inspects. It lives here to
// avoid a dependency cycle between application and repository.
type TestUnitOfWorkFactory struct {
	db        *database.DB
	publisher interfaces.EventPublisher
}

// NewTestUnitOfWorkFactory creates a new test unit of work factory
func NewTestUnitOfWorkFactory(db *database.DB, publisher interfaces.EventPublisher) *TestUnitOfWorkFactory {
	return &TestUnitOfWorkFactory{
		db:        db,
		publisher: publisher,
	}
}

// Create creates a new UnitOfWork instance for testing
func (f *TestUnitOfWorkFactory) Create() interfaces.UnitOfWork {
	return repository.CreateTestUnitOfWork(f.db, NewTransactionalPublisher(f.publisher))
}
