package relayv1

import "time"

type Empty struct{}

type StartRequest struct {
	// Pull endpoint, e.g. an HLS playlist url.
	Source string `json:"source"`
	// Push endpoint without the stream key.
	Destination string `json:"destination"`
	Key         string `json:"key"`
	Bitrate     string `json:"bitrate,omitempty"`
}

func (x *StartRequest) GetSource() string {
	if x != nil {
		return x.Source
	}
	return ""
}

func (x *StartRequest) GetDestination() string {
	if x != nil {
		return x.Destination
	}
	return ""
}

func (x *StartRequest) GetKey() string {
	if x != nil {
		return x.Key
	}
	return ""
}

func (x *StartRequest) GetBitrate() string {
	if x != nil {
		return x.Bitrate
	}
	return ""
}

type StreamId struct {
	Id string `json:"id"`
}

func (x *StreamId) GetId() string {
	if x != nil {
		return x.Id
	}
	return ""
}

type Termination string

const (
	Termination_GRACEFUL Termination = "graceful"
	Termination_FORCED   Termination = "forced"
	Termination_EXITED   Termination = "exited"
)

type StopResult struct {
	Id          string      `json:"id"`
	Source      string      `json:"source"`
	Destination string      `json:"destination"`
	Termination Termination `json:"termination"`
}

type StopResultList struct {
	Items []*StopResult `json:"items"`
}

func (x *StopResultList) GetItems() []*StopResult {
	if x != nil {
		return x.Items
	}
	return nil
}

type StreamSummary struct {
	Id          string `json:"id"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

type StreamSummaryList struct {
	Items []*StreamSummary `json:"items"`
}

func (x *StreamSummaryList) GetItems() []*StreamSummary {
	if x != nil {
		return x.Items
	}
	return nil
}

type StreamStat struct {
	Id          string        `json:"id"`
	Source      string        `json:"source"`
	Destination string        `json:"destination"`
	StartedAt   time.Time     `json:"startedAt"`
	Elapsed     time.Duration `json:"elapsed"`
	Bitrate     string        `json:"bitrate"`
}

type StreamStatList struct {
	Items []*StreamStat `json:"items"`
}

func (x *StreamStatList) GetItems() []*StreamStat {
	if x != nil {
		return x.Items
	}
	return nil
}

type UptimeResponse struct {
	StartedAt time.Time     `json:"startedAt"`
	Uptime    time.Duration `json:"uptime"`
}

type OutputChunk struct {
	Output []byte `json:"output"`
}

func (x *OutputChunk) GetOutput() []byte {
	if x != nil {
		return x.Output
	}
	return nil
}

type CommandRequest struct {
	Text string `json:"text"`
}

type CommandReply struct {
	Text string `json:"text"`
}

func (x *CommandReply) GetText() string {
	if x != nil {
		return x.Text
	}
	return ""
}
