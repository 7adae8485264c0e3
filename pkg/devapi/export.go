package devapi

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// CSVHeader is the column order of exported student lists.
var CSVHeader = []string{
	"id",
	"fullName",
	"studentEmail",
	"studentNumber",
	"rollNumber",
	"branch",
	"gender",
	"scholar",
	"mobileNumber",
	"domain",
	"isVerified",
	"createdAt",
	"updatedAt",
	"verifiedAt",
}

// WriteCSV writes students with a header row.
func WriteCSV(w io.Writer, students []Student) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, st := range students {
		row := []string{
			st.ID,
			st.FullName,
			st.StudentEmail,
			st.StudentNumber,
			st.RollNumber,
			st.Branch,
			st.Gender,
			st.Scholar,
			st.MobileNumber,
			st.Domain,
			strconv.FormatBool(st.IsVerified),
			formatTime(st.CreatedAt),
			formatTime(st.UpdatedAt),
			formatTime(st.VerifiedAt),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
