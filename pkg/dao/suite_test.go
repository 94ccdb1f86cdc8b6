package dao

import (
	"github.com/content-services/content-uploads-backend/pkg/config"
	"github.com/content-services/content-uploads-backend/pkg/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type DaoSuite struct {
	suite.Suite
	db *gorm.DB
	tx *gorm.DB
}

var orgIDTest = "org-" + uuid.NewString()[:8]
var accountIdTest = "acct-" + uuid.NewString()[:8]

func (s *DaoSuite) SetupSuite() {
	if config.Get().Database.Host == "" {
		s.T().Skip("database.host is not configured")
	}
	if db.DB == nil {
		if err := db.Connect(); err != nil {
			s.FailNow(err.Error())
		}
	}
	s.db = db.DB.Session(&gorm.Session{SkipDefaultTransaction: false})
}

func (s *DaoSuite) SetupTest() {
	s.tx = s.db.Begin()
}

func (s *DaoSuite) TearDownTest() {
	s.tx.Rollback()
}
