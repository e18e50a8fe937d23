package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// MarkAttendanceRequest represents the attendance mark API request.
type MarkAttendanceRequest struct {
	CourseTag string `json:"course_tag"`
}

// AttendanceRecord represents the attendance mark API response.
type AttendanceRecord struct {
	ID        string `json:"id"`
	CourseTag string `json:"course_tag"`
	MarkedAt  string `json:"marked_at"`
}

// CourseSummary represents one course in the attendance summary response.
type CourseSummary struct {
	CourseTag     string  `json:"course_tag"`
	Sessions      int     `json:"sessions"`
	TotalSessions int     `json:"total_sessions"`
	Percentage    float64 `json:"percentage"`
	LastMarkedAt  string  `json:"last_marked_at"`
}

// AttendanceSummary represents the attendance summary API response.
type AttendanceSummary struct {
	Courses []CourseSummary `json:"courses"`
}

// AttendanceCmd creates the attendance command group.
func AttendanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attendance",
		Short: "Attendance tracking commands",
		Long:  "Mark attendance for course sessions and view per-course summaries.",
	}

	cmd.AddCommand(AttendanceMarkCmd())
	cmd.AddCommand(AttendanceSummaryCmd())

	return cmd
}

// AttendanceMarkCmd creates the attendance mark command.
func AttendanceMarkCmd() *cobra.Command {
	var course string

	cmd := &cobra.Command{
		Use:   "mark",
		Short: "Mark attendance for a session",
		Long:  "Records an attendance entry. Defaults to your onboarded course tag when --course is omitted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAttendanceMark(course, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&course, "course", "c", "", "Course tag (default: your onboarded course)")

	return cmd
}

func runAttendanceMark(course string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := MarkAttendanceRequest{CourseTag: course}

	resp, err := api.Post("/api/v1/attendance", req)
	if err != nil {
		return fmt.Errorf("failed to mark attendance: %w", err)
	}

	var record AttendanceRecord
	if err := json.Unmarshal(resp.Data, &record); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(record, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("Attendance marked for %s\n", record.CourseTag)
		fmt.Printf("At: %s\n", record.MarkedAt)
	}

	return nil
}

// AttendanceSummaryCmd creates the attendance summary command.
func AttendanceSummaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show attendance summary",
		Long:  "Shows per-course session counts and attendance percentage.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAttendanceSummary(outputJSON)
		},
	}

	return cmd
}

func runAttendanceSummary(outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/v1/attendance/summary")
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	var summary AttendanceSummary
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(summary.Courses) == 0 {
		fmt.Println("No attendance recorded yet.")
		return nil
	}

	for _, course := range summary.Courses {
		fmt.Printf("%s: %d/%d sessions (%.0f%%)\n",
			course.CourseTag, course.Sessions, course.TotalSessions, course.Percentage)
		if course.LastMarkedAt != "" {
			fmt.Printf("   Last marked: %s\n", course.LastMarkedAt)
		}
	}

	return nil
}
