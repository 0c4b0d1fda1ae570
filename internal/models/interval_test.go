package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rng(start, end string) TimeRange {
	return TimeRange{Start: MustClockTime(start), End: MustClockTime(end)}
}

func TestParseClockTime(t *testing.T) {
	cases := map[string]int{"00:00": 0, "09:05": 545, "13:30:00": 810, "23:59": 1439, "24:00": 1440}
	for raw, minutes := range cases {
		parsed, err := ParseClockTime(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, minutes, int(parsed), raw)
	}

	for _, raw := range []string{"", "9", "25:00", "10:60", "24:01", "ab:cd", "10:00:99"} {
		_, err := ParseClockTime(raw)
		assert.Error(t, err, raw)
	}
}

func TestTimeRangeOverlapIsSymmetric(t *testing.T) {
	ranges := []TimeRange{
		rng("08:00", "09:00"),
		rng("08:30", "09:30"),
		rng("09:00", "10:00"),
		rng("07:00", "12:00"),
		rng("11:59", "12:00"),
	}
	for _, a := range ranges {
		for _, b := range ranges {
			assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)
		}
	}
}

func TestTimeRangeTouchingDoesNotOverlap(t *testing.T) {
	assert.False(t, rng("09:00", "10:00").Overlaps(rng("10:00", "11:00")))
	assert.True(t, rng("09:00", "10:00").Overlaps(rng("09:59", "11:00")))
	assert.True(t, rng("09:00", "12:00").Overlaps(rng("10:00", "11:00")))
}

func TestTimeRangeValidate(t *testing.T) {
	assert.NoError(t, rng("09:00", "10:00").Validate())
	assert.ErrorIs(t, rng("10:00", "10:00").Validate(), ErrInvalidInterval)
	assert.ErrorIs(t, rng("11:00", "10:00").Validate(), ErrInvalidInterval)
}

func TestParseWeekdaysNormalisesAndSorts(t *testing.T) {
	days, err := ParseWeekdays([]string{"friday", "Mon", "WED", "mon"})
	require.NoError(t, err)
	assert.Equal(t, Weekdays{Monday, Wednesday, Friday}, days)

	_, err = ParseWeekdays([]string{"Sat"})
	assert.Error(t, err)
}

func TestWeekdaysDatabaseRoundTrip(t *testing.T) {
	value, err := Weekdays{Monday, Thursday}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"Mon","Thu"}`, value)

	var scanned Weekdays
	require.NoError(t, scanned.Scan([]byte("{Tue,Fri}")))
	assert.Equal(t, Weekdays{Tuesday, Friday}, scanned)
}

func TestClockTimeScanSources(t *testing.T) {
	var c ClockTime
	require.NoError(t, c.Scan("08:15:00"))
	assert.Equal(t, "08:15", c.String())

	require.NoError(t, c.Scan([]byte("13:45:00")))
	assert.Equal(t, "13:45", c.String())

	require.NoError(t, c.Scan(time.Date(0, 1, 1, 7, 5, 0, 0, time.UTC)))
	assert.Equal(t, "07:05", c.String())
}

func TestClockTimeJSON(t *testing.T) {
	payload, err := json.Marshal(rng("09:00", "10:30"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"startTime":"09:00","endTime":"10:30"}`, string(payload))

	var decoded TimeRange
	require.NoError(t, json.Unmarshal([]byte(`{"startTime":"08:00:00","endTime":"08:45"}`), &decoded))
	assert.Equal(t, 480, int(decoded.Start))
}

func TestSectionAcceptsGrade(t *testing.T) {
	section := Section{GradeLevel: "Grade 7"}
	assert.True(t, section.AcceptsGrade("7"))
	assert.True(t, section.AcceptsGrade("grade7"))
	assert.False(t, section.AcceptsGrade("8"))
}

func TestScheduleConflictErrorMessages(t *testing.T) {
	err := &ScheduleConflictError{Conflicts: []ConflictReport{{
		Day: Monday,
		Conflicts: DayConflicts{
			Teacher: OverlapGroup{HasOverlap: true, Schedules: []ConflictingSchedule{{ScheduleID: "A", SubjectName: "Math", StartTime: MustClockTime("09:00"), EndTime: MustClockTime("10:00"), Counterpart: "7-A"}}},
		},
	}}}
	assert.Equal(t, []string{"Mon: teacher is already scheduled Math 09:00-10:00 (7-A)"}, err.Messages())
	assert.Equal(t, "Mon: teacher is already scheduled Math 09:00-10:00 (7-A)", err.Error())
}

func TestEnrollmentStatusTerminal(t *testing.T) {
	assert.False(t, EnrollmentStatusPending.Terminal())
	assert.True(t, EnrollmentStatusApproved.Terminal())
	assert.True(t, EnrollmentStatusDeclined.Terminal())
	assert.False(t, EnrollmentStatus("archived").Valid())
}
