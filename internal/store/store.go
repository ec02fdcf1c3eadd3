package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	SyncJob() SyncJob
	MassResync() MassResync
	Webinar() Webinar
	Participant() Participant
	Registrant() Registrant
	Recording() Recording
	Interaction() Interaction
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db          *gorm.DB
	syncJob     SyncJob
	massResync  MassResync
	webinar     Webinar
	participant Participant
	registrant  Registrant
	recording   Recording
	interaction Interaction
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		db:          db,
		syncJob:     NewSyncJobStore(db),
		massResync:  NewMassResyncStore(db),
		webinar:     NewWebinarStore(db),
		participant: NewParticipantStore(db),
		registrant:  NewRegistrantStore(db),
		recording:   NewRecordingStore(db),
		interaction: NewInteractionStore(db),
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) SyncJob() SyncJob {
	return s.syncJob
}

func (s *DataStore) MassResync() MassResync {
	return s.massResync
}

func (s *DataStore) Webinar() Webinar {
	return s.webinar
}

func (s *DataStore) Participant() Participant {
	return s.participant
}

func (s *DataStore) Registrant() Registrant {
	return s.registrant
}

func (s *DataStore) Recording() Recording {
	return s.recording
}

func (s *DataStore) Interaction() Interaction {
	return s.interaction
}

func (s *DataStore) InitialMigration() error {
	for _, st := range []interface{ InitialMigration() error }{
		s.syncJob, s.massResync, s.webinar, s.participant, s.registrant, s.recording, s.interaction,
	} {
		if err := st.InitialMigration(); err != nil {
			return err
		}
	}
	return nil
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
