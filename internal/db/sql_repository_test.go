package db_test

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tomashoffer/possible-cheaters/internal/db"
	"github.com/tomashoffer/possible-cheaters/internal/tools"
)

type sqliteTestContext struct {
	store *db.Store
	bans  db.BanRepository
	repo  db.PossibleCheaterRepository
}

func setupSQLiteTest(ctx SpecContext) *sqliteTestContext {
	store, err := db.Open(ctx, db.DriverSQLite, filepath.Join(GinkgoT().TempDir(), "test.db"))
	Expect(err).NotTo(HaveOccurred())
	Expect(tools.EnsureSchema(ctx, store)).To(Succeed())
	Expect(tools.EnsureBanTable(ctx, store)).To(Succeed())

	return &sqliteTestContext{
		store: store,
		bans:  store.BanRepository(),
		repo:  store.CheaterRepository(),
	}
}

func (tc *sqliteTestContext) cleanup() {
	if tc.store != nil {
		tc.store.Close()
	}
}

var _ = Describe("SQL Repositories", func() {
	var tc *sqliteTestContext
	date := time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC)

	BeforeEach(func(ctx SpecContext) {
		tc = setupSQLiteTest(ctx)
	})

	AfterEach(func() {
		tc.cleanup()
	})

	Describe("Ban Registry", func() {
		It("should only count bans strictly before the date", func(ctx SpecContext) {
			Expect(tools.InsertBan(ctx, tc.store, db.BanRecord{PlayerId: 1, BanTime: date.AddDate(0, 0, -30)})).To(Succeed())
			Expect(tools.InsertBan(ctx, tc.store, db.BanRecord{PlayerId: 2, BanTime: date.AddDate(0, 0, -1)})).To(Succeed())
			Expect(tools.InsertBan(ctx, tc.store, db.BanRecord{PlayerId: 3, BanTime: date})).To(Succeed())
			Expect(tools.InsertBan(ctx, tc.store, db.BanRecord{PlayerId: 4, BanTime: date.AddDate(0, 0, 1)})).To(Succeed())

			banned, err := tc.bans.BannedBefore(ctx, date)
			Expect(err).NotTo(HaveOccurred())
			Expect(banned).To(HaveLen(2))
			Expect(banned.Contains(1)).To(BeTrue())
			Expect(banned.Contains(2)).To(BeTrue())
			Expect(banned.Contains(3)).To(BeFalse())
			Expect(banned.Contains(4)).To(BeFalse())
		})

		It("should collapse repeated bans of one player", func(ctx SpecContext) {
			Expect(tools.InsertBan(ctx, tc.store, db.BanRecord{PlayerId: 1, BanTime: date.AddDate(0, 0, -3)})).To(Succeed())
			Expect(tools.InsertBan(ctx, tc.store, db.BanRecord{PlayerId: 1, BanTime: date.AddDate(0, 0, -2)})).To(Succeed())

			banned, err := tc.bans.BannedBefore(ctx, date)
			Expect(err).NotTo(HaveOccurred())
			Expect(banned).To(HaveLen(1))
		})

		It("should return an empty set when nobody is banned", func(ctx SpecContext) {
			banned, err := tc.bans.BannedBefore(ctx, date)
			Expect(err).NotTo(HaveOccurred())
			Expect(banned).To(BeEmpty())
		})

		It("should fail with store unavailable when the table is missing", func(ctx SpecContext) {
			Expect(tc.store.Exec(ctx, "DROP TABLE cheaters")).To(Succeed())

			_, err := tc.bans.BannedBefore(ctx, date)
			Expect(err).To(MatchError(db.ErrStoreUnavailable))
		})
	})

	Describe("Append Sink", func() {
		record := db.PossibleCheaterRecord{
			Timestamp:  date.Unix() + 36005,
			PlayerId:   7,
			EventId:    42,
			ErrorId:    "E",
			JsonServer: `{"s": 1}`,
			JsonClient: `{"c": 1}`,
		}

		It("should append records and read them back", func(ctx SpecContext) {
			n, err := tc.repo.AppendRecords(ctx, []db.PossibleCheaterRecord{record})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(1))

			records, err := tc.repo.GetRecords(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal([]db.PossibleCheaterRecord{record}))
		})

		It("should keep earlier rows on every append", func(ctx SpecContext) {
			other := record
			other.PlayerId = 8

			_, err := tc.repo.AppendRecords(ctx, []db.PossibleCheaterRecord{record})
			Expect(err).NotTo(HaveOccurred())
			_, err = tc.repo.AppendRecords(ctx, []db.PossibleCheaterRecord{record, other})
			Expect(err).NotTo(HaveOccurred())

			Expect(tc.repo.GetRecordsCount(ctx)).To(Equal(3))
			records, err := tc.repo.GetRecords(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal([]db.PossibleCheaterRecord{record, record, other}))
		})

		It("should accept an empty batch without touching the table", func(ctx SpecContext) {
			n, err := tc.repo.AppendRecords(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeZero())
			Expect(tc.repo.GetRecordsCount(ctx)).To(Equal(0))
		})

		It("should fail with write failure when the table is missing", func(ctx SpecContext) {
			Expect(tc.store.Exec(ctx, "DROP TABLE possible_cheaters")).To(Succeed())

			_, err := tc.repo.AppendRecords(ctx, []db.PossibleCheaterRecord{record})
			Expect(err).To(MatchError(db.ErrWriteFailure))
		})
	})
})
