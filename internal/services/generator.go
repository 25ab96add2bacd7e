package services

import (
	"strconv"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/tbourn/go-user-records/internal/domain"
)

// Generated users get ages in this inclusive range.
const (
	MinGeneratedAge = 18
	MaxGeneratedAge = 80
)

// Generator produces synthetic users. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(n int) []domain.User
}

// FakeGenerator is the gofakeit-backed Generator.
type FakeGenerator struct {
	mu    sync.Mutex
	faker *gofakeit.Faker
}

// NewFakeGenerator returns a generator seeded with seed; 0 picks a random
// seed.
func NewFakeGenerator(seed uint64) *FakeGenerator {
	return &FakeGenerator{faker: gofakeit.New(seed)}
}

// Generate returns n users with random name, email, age and city.
func (g *FakeGenerator) Generate(n int) []domain.User {
	g.mu.Lock()
	defer g.mu.Unlock()

	users := make([]domain.User, 0, n)
	for i := 0; i < n; i++ {
		users = append(users, domain.User{
			Name:  g.faker.Name(),
			Email: g.faker.Email(),
			Age:   g.faker.Number(MinGeneratedAge, MaxGeneratedAge),
			City:  g.faker.City(),
		})
	}
	return users
}

// embedToken rewrites every email as <local>-<unique>-<i>@<domain>, so
// repeated batches with distinct tokens never collide on email. The token
// is opaque and copied verbatim.
func embedToken(users []domain.User, unique string) {
	if unique == "" {
		return
	}
	for i := range users {
		users[i].Email = tagEmail(users[i].Email, unique+"-"+strconv.Itoa(i))
	}
}

// tagEmail inserts "-tag" before the "@" of addr.
func tagEmail(addr, tag string) string {
	local, dom, ok := strings.Cut(addr, "@")
	if !ok {
		return addr + "-" + tag
	}
	return local + "-" + tag + "@" + dom
}
