package config

// Clinic scheduling settings. Opening hours are whole hours on a 24h clock;
// slots are offered on a fixed 30 minute grid between them.
//
// Set via env:
// - CLINIC_OPEN_HOUR (default 9)
// - CLINIC_CLOSE_HOUR (default 17)

func ClinicOpenHour() int {
	h := intFromEnv("CLINIC_OPEN_HOUR", 9)
	if h < 0 || h > 23 {
		return 9
	}
	return h
}

func ClinicCloseHour() int {
	h := intFromEnv("CLINIC_CLOSE_HOUR", 17)
	if h < 1 || h > 24 {
		return 17
	}
	return h
}

// SlotStepMinutes is the candidate-start granularity for appointment slots.
// The grid is fixed regardless of the requested duration.
const SlotStepMinutes = 30
