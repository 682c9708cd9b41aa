package main

import (
	"os"
	"testing"

	"github.com/joho/godotenv"
)

// TestMain loads .env when present. Each test clears the variables that
// would point the CLI away from its fake backend.
func TestMain(m *testing.M) {
	_ = godotenv.Load()
	os.Exit(m.Run())
}
