package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateRequest_Validate(t *testing.T) {
	valid := GenerateRequest{JobDescription: "Backend engineer with Python", ExperienceIDs: []string{"a", "b"}}
	assert.NoError(t, valid.Validate())

	noIDs := GenerateRequest{JobDescription: "Backend engineer with Python"}
	assert.Error(t, noIDs.Validate())

	blankID := GenerateRequest{JobDescription: "Backend engineer", ExperienceIDs: []string{""}}
	assert.Error(t, blankID.Validate())

	tooLong := GenerateRequest{JobDescription: strings.Repeat("x", 5001), ExperienceIDs: []string{"a"}}
	assert.Error(t, tooLong.Validate())
}

func TestCloneProjects_IsDeep(t *testing.T) {
	original := []ProjectBullets{{Project: "Payments", Bullets: []string{"Led migration of X"}}}

	clone := CloneProjects(original)
	clone[0].Bullets[0] = "changed"
	clone[0].Project = "changed"

	assert.Equal(t, "Led migration of X", original[0].Bullets[0])
	assert.Equal(t, "Payments", original[0].Project)
	assert.Nil(t, CloneProjects(nil))
}
