package services

import (
	"bytes"
	"testing"
	"time"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestBuildOccupancyWorkbook(t *testing.T) {
	rows := []PrisonOccupancyRow{
		{PrisonName: "Central", City: "Yaoundé", Capacity: 10, Preventive: 8, Convicted: 4, Total: 12, Rate: 1.2},
		{PrisonName: "North", City: "Garoua", Capacity: 20, Preventive: 1, Total: 1, Rate: 0.05},
	}

	data, err := BuildOccupancyWorkbook(rows, time.Date(2024, 5, 6, 7, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	header, _ := f.GetCellValue(sheetOccupancy, "A1")
	assert.Equal(t, "Prison", header)
	name, _ := f.GetCellValue(sheetOccupancy, "A2")
	assert.Equal(t, "Central", name)
	total, _ := f.GetCellValue(sheetOccupancy, "F4")
	assert.Equal(t, "13", total)
	footer, _ := f.GetCellValue(sheetOccupancy, "A6")
	assert.Equal(t, "Generated 2024-05-06 07:00", footer)
}

func TestExportCasesScopesToAssignments(t *testing.T) {
	db := setupTestDB(t)
	fx := seedFixtures(t, db)

	complaint := fx.complaint(t, db, models.ComplaintStatusTransmitted)
	caseRecord := &models.Case{ComplaintID: complaint.ID, Reference: "RP-2024-00001", Stage: models.CaseStageProsecution, Status: models.CaseStatusOpen}
	require.NoError(t, db.Create(caseRecord).Error)

	cases, err := ExportCases(db, ActorFromUser(fx.Police), CaseFilter{})
	require.NoError(t, err)
	assert.Empty(t, cases)

	require.NoError(t, db.Create(&models.Assignment{CaseID: caseRecord.ID, UserID: fx.Police.ID, Role: models.AssignmentPoliceInvestigator}).Error)
	cases, err = ExportCases(db, ActorFromUser(fx.Police), CaseFilter{})
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.NotNil(t, cases[0].Complaint)

	_, err = ExportCases(db, ActorFromUser(fx.Citizen), CaseFilter{})
	assert.ErrorIs(t, err, ErrForbidden)

	data, err := BuildCaseExportWorkbook(cases)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	ref, _ := f.GetCellValue(sheetCases, "A2")
	assert.Equal(t, "RP-2024-00001", ref)
	tracking, _ := f.GetCellValue(sheetCases, "B2")
	assert.Equal(t, complaint.TrackingCode, tracking)
}
