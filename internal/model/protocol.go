package model

// Protocol is a reusable stimulation parameter set. SessionDuration is the
// only field the scheduler consumes; the waveform fields describe the
// stimulation train itself.
type Protocol struct {
	Base
	ProtocolName       string   `db:"protocol_name" json:"protocol_name"`
	WaveformType       string   `db:"waveform_type" json:"waveform_type"`
	BurstPulses        *int     `db:"burst_pulses" json:"burst_pulses,omitempty"`
	InterPulseInterval *float64 `db:"inter_pulse_interval" json:"inter_pulse_interval,omitempty"`
	PulseRate          float64  `db:"pulse_rate" json:"pulse_rate"`
	PulsesPerTrain     int      `db:"pulses_per_train" json:"pulses_per_train"`
	NumTrains          int      `db:"num_trains" json:"num_trains"`
	InterTrainInterval float64  `db:"inter_train_interval" json:"inter_train_interval"`
	SessionDuration    int      `db:"session_duration" json:"session_duration"`
}

type CreateProtocolRequest struct {
	ProtocolName       string   `json:"protocol_name" validate:"required"`
	WaveformType       string   `json:"waveform_type" validate:"required,oneof=Biphasic 'Biphasic Bursts'"`
	BurstPulses        *int     `json:"burst_pulses" validate:"omitempty,gte=1"`
	InterPulseInterval *float64 `json:"inter_pulse_interval" validate:"omitempty,gt=0"`
	PulseRate          float64  `json:"pulse_rate" validate:"required,gt=0"`
	PulsesPerTrain     int      `json:"pulses_per_train" validate:"required,gte=1"`
	NumTrains          int      `json:"num_trains" validate:"required,gte=1"`
	InterTrainInterval float64  `json:"inter_train_interval" validate:"gte=0"`
	SessionDuration    int      `json:"session_duration" validate:"required,gte=1"`
}
