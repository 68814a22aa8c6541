package application

import (
	"fmt"
	"time"
)

var testReference = time.Date(2026, time.March, 9, 10, 30, 0, 0, time.UTC)

func testClock() func() time.Time {
	return func() time.Time { return testReference }
}

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func newTestSession() Session {
	return Session{
		ID:                 "session-001",
		Title:              "Hail damage claim mediation",
		ScheduledFor:       testReference.Add(time.Hour),
		DurationMinutes:    60,
		Status:             StatusScheduled,
		AccessPolicy:       PolicyVerified,
		VerificationMethod: VerifyMagicLink,
		CacheMinutes:       60,
		Mediator:           "Jordan Avery",
		Sides:              []string{"Policyholder side", "Carrier side"},
		CreatedAt:          testReference,
		UpdatedAt:          testReference,
	}
}
