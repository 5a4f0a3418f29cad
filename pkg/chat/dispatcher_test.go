package chat_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kralicky/streamrelay/pkg/chat"
	"github.com/kralicky/streamrelay/pkg/process/processtest"
	"github.com/kralicky/streamrelay/pkg/supervisor"
)

const streamCmd = "/stream http://example.com/playlist.m3u8 rtmp://a.rtmp.youtube.com/live2 abcd-1234"

var _ = Describe("Dispatcher", func() {
	var (
		launcher *processtest.Launcher
		sup      *supervisor.Supervisor
		d        *chat.Dispatcher
	)
	BeforeEach(func() {
		launcher = &processtest.Launcher{}
		sup = supervisor.New(launcher, supervisor.Options{
			GracePeriod: 50 * time.Millisecond,
		})
		d = chat.NewDispatcher(sup)
	})

	It("should reply to /start and /help", func() {
		Expect(d.Dispatch("/start")).To(Equal(chat.Welcome))
		Expect(d.Dispatch("/help")).To(Equal(chat.Help))
		Expect(d.Dispatch("/help@StreamBot")).To(Equal(chat.Help))
	})
	It("should reject unknown commands and plain text", func() {
		Expect(d.Dispatch("/bogus")).To(ContainSubstring("Unknown command /bogus"))
		Expect(d.Dispatch("hello")).To(HavePrefix("Unknown command"))
		Expect(d.Dispatch("")).To(HavePrefix("Unknown command"))
	})

	When("starting streams", func() {
		It("should start a stream and reply with its id", func() {
			reply := d.Dispatch(streamCmd)
			Expect(sup.ListStreams()).To(HaveLen(1))
			id := sup.ListStreams()[0].ID
			Expect(reply).To(Equal("Started stream " + id +
				" from http://example.com/playlist.m3u8 to rtmp://a.rtmp.youtube.com/live2/abcd-1234"))
		})
		It("should accept an optional bitrate", func() {
			d.Dispatch(streamCmd + " 6000k")
			Expect(sup.StreamStats()).To(ConsistOf(HaveField("Bitrate", "6000k")))
		})
		It("should print usage when arguments are missing", func() {
			Expect(d.Dispatch("/stream http://example.com/playlist.m3u8")).To(HavePrefix("Usage: /stream"))
			Expect(sup.ListStreams()).To(BeEmpty())
		})
		It("should reject invalid urls", func() {
			Expect(d.Dispatch("/stream ftp://x/y rtmp://h/live key")).To(HavePrefix("Invalid M3U8 or RTMP URL"))
			Expect(sup.ListStreams()).To(BeEmpty())
		})
		It("should report launch errors", func() {
			launcher.Err = errors.New("exec: \"ffmpeg\": executable file not found in $PATH")
			Expect(d.Dispatch(streamCmd)).To(Equal(`Error starting stream: exec: "ffmpeg": executable file not found in $PATH`))
		})
	})

	When("stopping streams", func() {
		It("should report when nothing is running", func() {
			Expect(d.Dispatch("/stop")).To(Equal("No stream is currently running."))
			Expect(d.Dispatch("/stopall")).To(Equal("No stream is currently running."))
		})
		It("should stop the only stream when no id is given", func() {
			d.Dispatch(streamCmd)
			id := sup.ListStreams()[0].ID
			Expect(d.Dispatch("/stop")).To(Equal("Stream " + id + " stopped successfully."))
			Expect(sup.ListStreams()).To(BeEmpty())
		})
		It("should require an id when several streams are running", func() {
			d.Dispatch(streamCmd)
			d.Dispatch(streamCmd)
			Expect(d.Dispatch("/stop")).To(HavePrefix("Multiple streams are running"))
			Expect(sup.ListStreams()).To(HaveLen(2))

			id := sup.ListStreams()[1].ID
			Expect(d.Dispatch("/stop " + id)).To(Equal("Stream " + id + " stopped successfully."))
			Expect(sup.ListStreams()).To(HaveLen(1))
		})
		It("should report unknown ids", func() {
			Expect(d.Dispatch("/stop deadbeef")).To(Equal("No stream with id deadbeef is running."))
		})
		It("should report forced stops", func() {
			launcher.StopDelay = processtest.IgnoreTerm
			d.Dispatch(streamCmd)
			id := sup.ListStreams()[0].ID
			Expect(d.Dispatch("/stop " + id)).To(Equal("Stream " + id + " forcefully stopped."))
		})
		It("should stop all streams", func() {
			d.Dispatch(streamCmd)
			d.Dispatch(streamCmd)
			reply := d.Dispatch("/stopall")
			Expect(reply).To(HavePrefix("Stopped 2 stream(s):"))
			Expect(sup.ListStreams()).To(BeEmpty())
		})
	})

	When("inspecting streams", func() {
		It("should list active streams", func() {
			Expect(d.Dispatch("/list")).To(Equal("No stream is currently running."))
			d.Dispatch(streamCmd)
			id := sup.ListStreams()[0].ID
			Expect(d.Dispatch("/list")).To(Equal("Active streams:\n" + id +
				": http://example.com/playlist.m3u8 -> rtmp://a.rtmp.youtube.com/live2/abcd-1234"))
		})
		It("should show stats and uptime", func() {
			d.Dispatch(streamCmd)
			Expect(d.Dispatch("/stats")).To(MatchRegexp(`^Stream stats:\n[0-9a-f]{8}: running for 0:00:0\d at 3500k`))
			Expect(d.Dispatch("/uptime")).To(MatchRegexp(`^Bot uptime: \d+:\d{2}:\d{2}$`))
		})
	})
})
