package evaluation

// PhaseScore combines the three seat marks into the phase score: the chair's
// marks in full, plus the ceiling of the two evaluators' mean.
func PhaseScore(chair, eval2, eval3 int) int {
	return chair + (eval2+eval3+1)/2
}

// Grade boundaries over the combined mid-term + end-term total.
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeBPlus = "B+"
	GradeB     = "B"
	GradeC     = "C"
	GradeD     = "D"
)

// Grade maps a total score to a letter grade.
func Grade(total int) string {
	switch {
	case total >= 90:
		return GradeAPlus
	case total >= 80:
		return GradeA
	case total >= 70:
		return GradeBPlus
	case total >= 60:
		return GradeB
	case total >= 50:
		return GradeC
	default:
		return GradeD
	}
}
