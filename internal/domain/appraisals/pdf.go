package appraisals

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// Summary gathers what the summary PDF needs. Missing names fall back to
// ids so a directory outage still yields a document.
func (s *Service) Summary(ctx context.Context, id string) (Summary, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	c, err := s.Cycles.Get(ctx, a.CycleID)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		Appraisal:    a,
		CycleName:    c.Name,
		EmployeeName: s.displayName(ctx, a.EmployeeID),
		ManagerName:  s.displayName(ctx, a.ManagerID),
		GeneratedAt:  s.Now().UTC(),
	}
	if s.Goals != nil {
		goals, err := s.Goals.GoalsFor(ctx, a.EmployeeID, a.CycleID)
		if err != nil {
			return Summary{}, err
		}
		out.Goals = goals
	}
	return out, nil
}

func (s *Service) displayName(ctx context.Context, employeeID string) string {
	if employeeID == "" {
		return "-"
	}
	emp, err := s.Directory.Lookup(ctx, employeeID)
	if err != nil || emp.Name == "" {
		return employeeID
	}
	return emp.Name
}

// RenderPDF writes a one-page appraisal summary.
func RenderPDF(w io.Writer, sum Summary) error {
	a := sum.Appraisal
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Appraisal Summary")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	line := func(label, value string) {
		pdf.Cell(0, 7, fmt.Sprintf("%s: %s", label, value))
		pdf.Ln(6)
	}
	line("Cycle", sum.CycleName)
	line("Employee", sum.EmployeeName)
	line("Manager", sum.ManagerName)
	line("Status", a.Status)
	eligibility := a.EligibilityStatus
	if a.IsProrated {
		eligibility += " (prorated)"
	}
	line("Eligibility", eligibility)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	widths := []float64{90, 30, 30, 30}
	for i, h := range []string{"Goal", "Approval", "Self", "Manager"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	goals := append([]GoalSnapshot(nil), sum.Goals...)
	sort.Slice(goals, func(i, j int) bool { return goals[i].Title < goals[j].Title })
	for _, g := range goals {
		title := g.Title
		if title == "" {
			title = g.ID
		}
		row := []string{title, g.ApprovalStatus, ratingText(a.GoalRatings, g.ID), ratingText(a.ManagerGoalRatings, g.ID)}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 7, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 11)
	overall := "-"
	if a.OverallRating != nil {
		overall = strconv.Itoa(*a.OverallRating) + " / 5"
	}
	line("Overall rating", overall)
	if a.MeetingDate != nil {
		line("Review meeting", a.MeetingDate.Format("2006-01-02"))
	}
	ack := "pending"
	if a.Acknowledged && a.AcknowledgedAt != nil {
		ack = "acknowledged on " + a.AcknowledgedAt.Format("2006-01-02")
	}
	line("Acknowledgement", ack)
	if a.AcknowledgementComments != "" {
		pdf.MultiCell(0, 6, "Employee comments: "+a.AcknowledgementComments, "", "L", false)
	}
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.Cell(0, 6, "Generated "+sum.GeneratedAt.Format("2006-01-02 15:04 MST"))

	return pdf.Output(w)
}

func ratingText(ratings map[string]GoalRating, goalID string) string {
	r, ok := ratings[goalID]
	if !ok {
		return "-"
	}
	return strconv.Itoa(r.Rating)
}
