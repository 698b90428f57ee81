package models

// Course is a scheduled class offering.
type Course struct {
	ID              int64  `db:"id" json:"id" yaml:"id"`
	Name            string `db:"course_name" json:"course_name" yaml:"course_name" validate:"required"`
	Description     string `db:"description" json:"description" yaml:"description"`
	StartTime       string `db:"start_time" json:"start_time" yaml:"start_time" validate:"required,clock"`
	DurationMinutes int    `db:"class_duration" json:"class_duration" yaml:"class_duration" validate:"min=15,max=180,quarter_hour"`
}

// Window returns the course time window for the day.
func (c Course) Window() (Window, error) {
	start, err := ParseClock(c.StartTime)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: start.Add(c.DurationMinutes)}, nil
}

// Row converts the course into a column map for the remote store. A zero ID is omitted so the store can assign one.
func (c Course) Row() map[string]interface{} {
	row := map[string]interface{}{
		"course_name":    c.Name,
		"description":    c.Description,
		"start_time":     c.StartTime,
		"class_duration": c.DurationMinutes,
	}
	if c.ID != 0 {
		row["id"] = c.ID
	}
	return row
}
