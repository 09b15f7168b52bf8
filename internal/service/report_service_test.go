package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

func TestEligibilityCSV(t *testing.T) {
	svc := NewReportService(newTestStore(t, fixtureData(t)), academic.DefaultPolicy(), nil, nil, nil)

	body, err := svc.EligibilityCSV(context.Background())
	require.NoError(t, err)
	assert.Contains(t, svc.ContentType(), "text/csv")

	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, EligibilityCSVHeaders, rows[0])
	assert.Equal(t, []string{"S1", "Student Lovelace", "Computer Science", "Sophomore", "6", "3.50", "0", "true", "Not Enrolled", academic.ReasonEligible}, rows[1])
	assert.Equal(t, "false", rows[2][7])
}

func TestSendAcademicReport(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewReportService(newTestStore(t, fixtureData(t)), academic.DefaultPolicy(), notifier, nil, nil)

	require.NoError(t, svc.SendAcademicReport(context.Background(), "S2", "Fall 2024"))
	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	assert.Equal(t, models.NotifyAcademicReport, n.Kind)
	assert.Equal(t, "S2@uni.test", n.Recipient)
	assert.Equal(t, "Fall 2024", n.Fields["semester"])
	assert.Equal(t, 0.85, n.Fields["cgpa"])
	assert.Equal(t, []string{"CS101", "MA201"}, n.Fields["failed_courses"])
	assert.Len(t, n.Fields["courses"], 2)

	err := svc.SendAcademicReport(context.Background(), "S9", "")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
