//go:build integration

package factsink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/samply/directory-sync-service-sub000/internal/domain"
	"github.com/samply/directory-sync-service-sub000/pkg/testutil/containers"
)

type SinkSuite struct {
	suite.Suite
	pg   *containers.PostgresContainer
	sink *Sink
}

func TestSinkSuite(t *testing.T) {
	suite.Run(t, new(SinkSuite))
}

func (s *SinkSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.sink = New(s.pg.Pool)
	s.Require().NoError(s.sink.CreateSchema(context.Background()))
}

func (s *SinkSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "star_model_facts"))
}

func (s *SinkSuite) TestReplaceFacts() {
	ctx := context.Background()
	facts := []domain.Fact{
		{ID: "f1", Collection: "c1", Sex: "FEMALE", Disease: "urn:miriam:icd:C50.1", AgeRange: "Adult", SampleType: "BLOOD", NumberOfDonors: 2, NumberOfSamples: 3, LastUpdate: "2025-06-01"},
		{ID: "f2", Collection: "c1", Sex: "MALE", Disease: "urn:miriam:icd:E11", AgeRange: "Adult", SampleType: "SERUM", NumberOfDonors: 5, NumberOfSamples: 5, LastUpdate: "2025-06-01"},
	}

	s.Run("inserts a fresh block", func() {
		s.Require().NoError(s.sink.ReplaceFacts(ctx, "c1", facts))

		count, err := s.sink.CountFacts(ctx, "c1")
		s.Require().NoError(err)
		s.Equal(2, count)
	})

	s.Run("replace swaps the old block out", func() {
		s.Require().NoError(s.sink.ReplaceFacts(ctx, "c1", facts[:1]))

		count, err := s.sink.CountFacts(ctx, "c1")
		s.Require().NoError(err)
		s.Equal(1, count)
	})

	s.Run("empty replacement clears the collection", func() {
		s.Require().NoError(s.sink.ReplaceFacts(ctx, "c1", nil))

		count, err := s.sink.CountFacts(ctx, "c1")
		s.Require().NoError(err)
		s.Zero(count)
	})

	s.Run("other collections stay untouched", func() {
		other := []domain.Fact{{ID: "g1", Collection: "c2", Sex: "FEMALE", Disease: "urn:miriam:icd:C50", AgeRange: "Adult", SampleType: "BLOOD", NumberOfDonors: 3, NumberOfSamples: 3, LastUpdate: "2025-06-01"}}
		s.Require().NoError(s.sink.ReplaceFacts(ctx, "c2", other))
		s.Require().NoError(s.sink.ReplaceFacts(ctx, "c1", facts))

		count, err := s.sink.CountFacts(ctx, "c2")
		s.Require().NoError(err)
		s.Equal(1, count)
	})
}
