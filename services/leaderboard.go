package services

import (
	"errors"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"erg-logbook-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Ordering fields accepted by the ranking queries. The personal dashboard
// ranks by pace, the squad scoreboard by total elapsed time.
const (
	OrderBySplitTime  = "split_time_secs"
	OrderByResultTime = "result_time_secs"
)

// ErrNoSquads is returned when a coach view is requested but no squads exist.
var ErrNoSquads = errors.New("no squads configured")

type LeaderboardService struct {
	DB     *gorm.DB
	Rand   *rand.Rand
	Quotes QuoteProvider
}

func NewLeaderboardService(db *gorm.DB, rnd *rand.Rand, quotes QuoteProvider) *LeaderboardService {
	return &LeaderboardService{DB: db, Rand: rnd, Quotes: quotes}
}

// ---------------------------------------------------------------------------
// Pure ranking core. These operate on pre-fetched slices so the leaderboard
// rules stay testable without a database.
// ---------------------------------------------------------------------------

// FilterTestsByMonth keeps erg tests completed in the given month. A zero
// year skips the year filter — the personal dashboard matches the month
// across years, the scoreboard pins both.
func FilterTestsByMonth(ergs []models.FinishedErg, year int, month time.Month) []models.FinishedErg {
	var out []models.FinishedErg
	for _, e := range ergs {
		if !e.IsTest {
			continue
		}
		if e.CompletedAt.Month() != month {
			continue
		}
		if year != 0 && e.CompletedAt.Year() != year {
			continue
		}
		out = append(out, e)
	}
	return out
}

// TestDistance returns the test distance of the batch: the largest distinct
// distance among the erg tests. Zero means no test distance exists, which is
// a valid terminal state and not an error.
func TestDistance(tests []models.FinishedErg) uint {
	var max uint
	for _, e := range tests {
		if e.Distance > max {
			max = e.Distance
		}
	}
	return max
}

// RankTests filters the tests down to one distance and sorts them ascending
// by the requested field (fastest first).
func RankTests(tests []models.FinishedErg, distance uint, orderBy string) []models.FinishedErg {
	var ranked []models.FinishedErg
	for _, e := range tests {
		if e.Distance == distance {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if orderBy == OrderByResultTime {
			return ranked[i].ResultTimeSecs < ranked[j].ResultTimeSecs
		}
		return ranked[i].SplitTimeSecs < ranked[j].SplitTimeSecs
	})
	return ranked
}

// PersonalRank locates the member's best test within an already-ranked
// sequence. Position is 1-based; 0 means the member has no qualifying test.
// The displayed set is the top-3 prefix, with the member's own entry
// appended when it falls outside of it so they always see their result.
func PersonalRank(memberID string, ranked []models.FinishedErg) (best *models.FinishedErg, position int, display []models.FinishedErg) {
	prefix := 3
	if len(ranked) < prefix {
		prefix = len(ranked)
	}
	display = ranked[:prefix]

	bestIdx := -1
	for i, e := range ranked {
		if e.CompletedByID == memberID {
			bestIdx = i
			break
		}
	}
	if bestIdx == -1 {
		return nil, 0, display
	}
	best = &ranked[bestIdx]
	position = bestIdx + 1
	if bestIdx >= prefix {
		display = append(append([]models.FinishedErg{}, display...), *best)
	}
	return best, position, display
}

// DisplayDistances picks the distance tabs offered on the scoreboard: the
// maximum distance, its exact half when rowed, and 100m when rowed.
func DisplayDistances(distinct []uint) []uint {
	if len(distinct) == 0 {
		return nil
	}
	present := make(map[uint]bool, len(distinct))
	var max uint
	for _, d := range distinct {
		present[d] = true
		if d > max {
			max = d
		}
	}
	distances := []uint{max}
	if half := max / 2; half != max && present[half] {
		distances = append(distances, half)
	}
	if max != 100 && max/2 != 100 && present[100] {
		distances = append(distances, 100)
	}
	sort.Slice(distances, func(i, j int) bool { return distances[i] < distances[j] })
	return distances
}

func distinctDistances(ergs []models.FinishedErg) []uint {
	seen := make(map[uint]bool)
	var out []uint
	for _, e := range ergs {
		if !seen[e.Distance] {
			seen[e.Distance] = true
			out = append(out, e.Distance)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Store-backed queries.
// ---------------------------------------------------------------------------

func (s *LeaderboardService) squadTestErgs(squadID string) ([]models.FinishedErg, error) {
	var ergs []models.FinishedErg
	err := s.DB.
		Joins("JOIN members ON members.id = finished_ergs.completed_by_id").
		Where("members.squad_id = ? AND finished_ergs.is_test = ?", squadID, true).
		Find(&ergs).Error
	return ergs, err
}

func (s *LeaderboardService) allTestErgs() ([]models.FinishedErg, error) {
	var ergs []models.FinishedErg
	err := s.DB.Where("is_test = ?", true).Find(&ergs).Error
	return ergs, err
}

// TestDistanceOfMonth is the legacy dashboard path: month only, any year.
func (s *LeaderboardService) TestDistanceOfMonth(squadID string, month time.Month) (uint, error) {
	ergs, err := s.squadTestErgs(squadID)
	if err != nil {
		return 0, err
	}
	return TestDistance(FilterTestsByMonth(ergs, 0, month)), nil
}

// TestDistanceOfMonthYear is the scoreboard path: both year and month pinned.
func (s *LeaderboardService) TestDistanceOfMonthYear(squadID string, year int, month time.Month) (uint, error) {
	ergs, err := s.squadTestErgs(squadID)
	if err != nil {
		return 0, err
	}
	return TestDistance(FilterTestsByMonth(ergs, year, month)), nil
}

// RankSquadTests returns the squad's erg tests for the month at the given
// distance, fastest first by the requested field. A zero year matches the
// month across years.
func (s *LeaderboardService) RankSquadTests(squadID string, distance uint, year int, month time.Month, orderBy string) ([]models.FinishedErg, error) {
	ergs, err := s.squadTestErgs(squadID)
	if err != nil {
		return nil, err
	}
	return RankTests(FilterTestsByMonth(ergs, year, month), distance, orderBy), nil
}

// PickSquad resolves the squad a coach is looking at. An empty selector
// falls back to a random squad (seeded via the injected rand source).
func (s *LeaderboardService) PickSquad(selector string) (*models.Squad, error) {
	if selector != "" {
		var squad models.Squad
		if err := s.DB.Where("id = ? OR slug = ?", selector, selector).First(&squad).Error; err != nil {
			return nil, err
		}
		return &squad, nil
	}
	var squads []models.Squad
	if err := s.DB.Find(&squads).Error; err != nil {
		return nil, err
	}
	if len(squads) == 0 {
		return nil, ErrNoSquads
	}
	return &squads[s.Rand.Intn(len(squads))], nil
}

// ---------------------------------------------------------------------------
// Handlers.
// ---------------------------------------------------------------------------

// Dashboard renders the landing view: the member's recent ergs plus the
// monthly squad leaderboard. Coaches get a (selectable) squad's top three
// with no personal rank; members get their own squad, their position and a
// motivational quote.
func (s *LeaderboardService) Dashboard(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)
	now := time.Now()

	recentQuery := s.DB.Where("completed_by_id = ?", member.ID)
	if c.Query("isTest") == "True" {
		recentQuery = recentQuery.Where("is_test = ?", true)
	}
	var recent []models.FinishedErg
	if err := recentQuery.Order("completed_at DESC").Limit(3).Find(&recent).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load recent ergs"})
	}

	resp := fiber.Map{
		"my_last_ergs":  recent,
		"current_month": int(now.Month()),
		"current_year":  now.Year(),
	}

	if member.IsCoach {
		squad, err := s.PickSquad(c.Query("squad"))
		if err != nil {
			if errors.Is(err, ErrNoSquads) || errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "squad not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to pick squad"})
		}
		dist, err := s.TestDistanceOfMonth(squad.ID, now.Month())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute test distance"})
		}
		resp["current_squad"] = squad
		resp["erg_dist_of_month"] = dist
		if dist > 0 {
			ranked, err := s.RankSquadTests(squad.ID, dist, 0, now.Month(), OrderBySplitTime)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to rank tests"})
			}
			if len(ranked) > 3 {
				ranked = ranked[:3]
			}
			resp["splits_to_display"] = ranked
		}
		return c.JSON(resp)
	}

	if member.SquadID == nil {
		resp["erg_dist_of_month"] = 0
		return c.JSON(resp)
	}

	dist, err := s.TestDistanceOfMonth(*member.SquadID, now.Month())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute test distance"})
	}
	resp["erg_dist_of_month"] = dist
	if dist == 0 {
		return c.JSON(resp)
	}

	ranked, err := s.RankSquadTests(*member.SquadID, dist, 0, now.Month(), OrderBySplitTime)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to rank tests"})
	}
	best, position, display := PersonalRank(member.ID, ranked)
	resp["splits_to_display"] = display
	resp["users_best_split"] = best
	if position > 0 {
		resp["users_position"] = position
	}

	category := QuoteCategoryMotivational
	if position == 1 {
		category = QuoteCategoryWinner
	}
	if quote, err := s.Quotes.Quote(category); err == nil {
		resp["quote"] = quote
	} else {
		log.Printf("[LEADERBOARD] quote lookup failed: %v", err)
	}
	return c.JSON(resp)
}

// Scoreboard renders the monthly squad scoreboard for a given year and
// month, ordered by total result time. Coaches additionally get a per-squad
// breakdown; an optional ?distance= narrows every list to one distance.
func (s *LeaderboardService) Scoreboard(c *fiber.Ctx) error {
	member := c.Locals("member").(*models.Member)

	year, err := strconv.Atoi(c.Params("year"))
	if err != nil || year < 1900 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid year"})
	}
	monthNum, err := strconv.Atoi(c.Params("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid month"})
	}
	month := time.Month(monthNum)

	var distanceFilter uint
	if q := c.Query("distance"); q != "" {
		d, err := strconv.Atoi(q)
		if err != nil || d <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid distance"})
		}
		distanceFilter = uint(d)
	}

	resp := fiber.Map{"year": year, "month": monthNum}

	if member.IsCoach {
		all, err := s.allTestErgs()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load erg tests"})
		}
		tests := FilterTestsByMonth(all, year, month)
		resp["erg_tests"] = sortByResultTime(filterDistance(tests, distanceFilter))
		resp["distances"] = DisplayDistances(distinctDistances(tests))

		var squads []models.Squad
		if err := s.DB.Find(&squads).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load squads"})
		}
		bySquad := make(map[string][]models.FinishedErg, len(squads))
		for _, squad := range squads {
			ergs, err := s.squadTestErgs(squad.ID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load squad tests"})
			}
			squadTests := filterDistance(FilterTestsByMonth(ergs, year, month), distanceFilter)
			bySquad[squad.SquadName] = sortByResultTime(squadTests)
		}
		resp["squads_erg_tests"] = bySquad
		return c.JSON(resp)
	}

	if member.SquadID == nil {
		resp["erg_tests"] = []models.FinishedErg{}
		return c.JSON(resp)
	}
	ergs, err := s.squadTestErgs(*member.SquadID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load erg tests"})
	}
	tests := FilterTestsByMonth(ergs, year, month)
	resp["erg_tests"] = sortByResultTime(filterDistance(tests, distanceFilter))
	resp["distances"] = DisplayDistances(distinctDistances(tests))
	return c.JSON(resp)
}

func filterDistance(ergs []models.FinishedErg, distance uint) []models.FinishedErg {
	if distance == 0 {
		return ergs
	}
	var out []models.FinishedErg
	for _, e := range ergs {
		if e.Distance == distance {
			out = append(out, e)
		}
	}
	return out
}

func sortByResultTime(ergs []models.FinishedErg) []models.FinishedErg {
	sorted := append([]models.FinishedErg{}, ergs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ResultTimeSecs < sorted[j].ResultTimeSecs
	})
	return sorted
}
