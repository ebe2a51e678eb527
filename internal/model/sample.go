package model

import "math"

// Eye tracker names as they appear in directory layouts and output files.
const (
	EyeLink1000Plus = "EyeLink 1000 Plus"
	PupilCore       = "Pupil Core"
	SMIETG          = "SMI ETG"
	PupilNeon       = "Pupil Neon"
	TobiiGlasses2   = "Tobii Glasses 2"
)

// HeadMountedTrackers lists the devices whose exports carry camera-frame
// pixel coordinates and therefore need undistortion and stabilization.
var HeadMountedTrackers = []string{PupilCore, SMIETG, PupilNeon, TobiiGlasses2}

// Trial conditions. The screen-based experiment labels trials by pupil
// response, the head-mounted one by stimulus lighting.
const (
	ConditionDilated     = "dilated"
	ConditionConstricted = "constricted"
	ConditionDark        = "dark"
	ConditionBright      = "bright"
)

// Point is a 2D position in whatever coordinate system the pipeline stage
// is currently using (raw pixel, undistorted pixel, or degrees).
type Point struct {
	X float64
	Y float64
}

// Sample is one timestamped (or frame-indexed) observation in the common
// schema shared by every device.
type Sample struct {
	EyeTracker     string
	ParticipantID  string
	TrialNumber    int
	TrialCondition string

	// Frame index for head-mounted sources, absolute timestamp and
	// time-from-trial-start for the screen-based source.
	Frame           int
	TimestampMS     float64
	TimeFromStartMS float64

	Gaze   Point
	Target Point

	GazeAngle   Point
	TargetAngle Point

	// Physical reference object corners, camera-frame pixels.
	TopLeft     Point
	TopRight    Point
	BottomLeft  Point
	BottomRight Point

	PupDiamL float64
	PupDiamR float64

	// Derived per-row quantities.
	GazeTargetAngle float64 // degrees between gaze and target rays
	DistanceMM      float64 // estimated viewing distance
}

// Dataset is an ordered collection of samples. Pipeline stages derive new
// datasets; they never mutate the one they were given.
type Dataset []Sample

// Clone returns a copy the caller may modify freely.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// CoordinateFields returns pointers to every coordinate field of s, so a
// stage that changes coordinate systems can convert the whole sample
// atomically. Order matches the output column order of intermediate files.
func CoordinateFields(s *Sample) []*Point {
	return []*Point{
		&s.Target,
		&s.TopLeft,
		&s.TopRight,
		&s.BottomLeft,
		&s.BottomRight,
		&s.Gaze,
	}
}

// NaN reports whether v is missing.
func NaN(v float64) bool { return math.IsNaN(v) }

// MissingFunc reports whether a sample has a NaN in any critical field.
type MissingFunc func(*Sample) bool

// MissingScreenFields is the critical-column check for the screen-based
// device: gaze position, pseudo-angles and both pupil diameters.
func MissingScreenFields(s *Sample) bool {
	return NaN(s.Gaze.X) || NaN(s.Gaze.Y) ||
		NaN(s.GazeAngle.X) || NaN(s.GazeAngle.Y) ||
		NaN(s.PupDiamL) || NaN(s.PupDiamR)
}

// MissingGaze is the gaze-validity check for head-mounted devices, where
// pupil diameters may legitimately be absent for some trackers.
func MissingGaze(s *Sample) bool {
	return NaN(s.Gaze.X) || NaN(s.Gaze.Y)
}
