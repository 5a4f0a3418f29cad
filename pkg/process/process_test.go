package process_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kralicky/streamrelay/pkg/logger"
	"github.com/kralicky/streamrelay/pkg/process"
	"github.com/kralicky/streamrelay/pkg/util"
)

func collect(p process.Handle) string {
	var out []byte
	for b := range p.Output(context.Background()) {
		out = append(out, b...)
	}
	return string(out)
}

var _ = Describe("Process", func() {
	When("starting a process", func() {
		It("should return without waiting for the process to exit", func() {
			start := time.Now()
			p, err := process.Start("sleep", []string{"10"}, nil)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(func() { p.Terminate(100 * time.Millisecond) })

			Expect(time.Since(start)).To(BeNumerically("<", time.Second))
			Expect(p.IsRunning()).To(BeTrue())
			Expect(p.Pid()).To(BeNumerically(">", 0))
			status := p.Status()
			Expect(status.State).To(Equal(process.StateRunning))
			Expect(status.Pid).To(Equal(p.Pid()))
			Expect(status.StartTime).NotTo(BeZero())
		})
		It("should capture combined output in memory and in the sink", func() {
			var sink bytes.Buffer
			p, err := process.Start("sh", []string{"-c", "echo out; echo err 1>&2"}, &sink)
			Expect(err).NotTo(HaveOccurred())
			Eventually(p.Done()).Should(BeClosed())

			out := collect(p)
			Expect(out).To(ContainSubstring("out\n"))
			Expect(out).To(ContainSubstring("err\n"))
			Expect(sink.String()).To(Equal(out))
		})
		It("should fail with a LaunchError if the executable does not exist", func() {
			p, err := process.Start("streamrelay-no-such-binary", nil, nil)
			Expect(p).To(BeNil())
			var launchErr *process.LaunchError
			Expect(errors.As(err, &launchErr)).To(BeTrue())
			Expect(launchErr.Command).To(Equal("streamrelay-no-such-binary"))
			Expect(errors.Is(err, exec.ErrNotFound)).To(BeTrue())
		})
	})

	When("the process exits on its own", func() {
		It("should report that it is no longer running and keep its exit status", func() {
			p, err := process.Start("sh", []string{"-c", "exit 3"}, nil)
			Expect(err).NotTo(HaveOccurred())
			Eventually(p.IsRunning).Should(BeFalse())

			// probing liveness repeatedly must not lose the exit status
			Expect(p.IsRunning()).To(BeFalse())
			status := p.Status()
			Expect(status.State).To(Equal(process.StateExited))
			Expect(status.ExitCode).To(Equal(3))
			Expect(status.EndTime).NotTo(BeZero())
		})
		It("should report AlreadyExited when terminated", func() {
			p, err := process.Start("true", nil, nil)
			Expect(err).NotTo(HaveOccurred())
			Eventually(p.Done()).Should(BeClosed())
			Expect(p.Terminate(time.Second)).To(Equal(process.AlreadyExited))
		})
	})

	When("terminating a running process", func() {
		It("should stop it gracefully if it responds to SIGTERM", func() {
			p, err := process.Start("sleep", []string{"30"}, nil)
			Expect(err).NotTo(HaveOccurred())

			start := time.Now()
			Expect(p.Terminate(5 * time.Second)).To(Equal(process.TerminatedGracefully))
			Expect(time.Since(start)).To(BeNumerically("<", 5*time.Second))
			Expect(p.IsRunning()).To(BeFalse())
			Expect(p.Status().Signal).To(Equal("SIGTERM"))
		})
		It("should kill it if it ignores SIGTERM, within the grace period plus the kill timeout", func() {
			sink := util.NewTailBuffer(64)
			p, err := process.Start("sh", []string{"-c", `trap "" TERM; echo ready; while :; do sleep 0.1; done`}, sink,
				process.Options{KillTimeout: 2 * time.Second})
			Expect(err).NotTo(HaveOccurred())
			// wait for the trap to be installed
			Eventually(sink.Bytes).Should(ContainSubstring("ready"))

			start := time.Now()
			Expect(p.Terminate(300 * time.Millisecond)).To(Equal(process.TerminatedForcefully))
			elapsed := time.Since(start)
			Expect(elapsed).To(BeNumerically(">=", 300*time.Millisecond))
			Expect(elapsed).To(BeNumerically("<", 300*time.Millisecond+2*time.Second))
			Expect(p.IsRunning()).To(BeFalse())
			Expect(p.Status().Signal).To(Equal("SIGKILL"))
		})
		It("should serialize concurrent terminations", func() {
			p, err := process.Start("sleep", []string{"30"}, nil)
			Expect(err).NotTo(HaveOccurred())
			results := make(chan process.Termination, 2)
			for i := 0; i < 2; i++ {
				go func() {
					defer GinkgoRecover()
					results <- p.Terminate(5 * time.Second)
				}()
			}
			var got []process.Termination
			for i := 0; i < 2; i++ {
				var t process.Termination
				Eventually(results).Should(Receive(&t))
				got = append(got, t)
			}
			Expect(got).To(ConsistOf(process.TerminatedGracefully, process.AlreadyExited))
		})
	})
})

var _ = Describe("ExecLauncher", func() {
	It("should write process output to a per-stream log file", func() {
		dir := GinkgoT().TempDir()
		l := &process.ExecLauncher{
			Command: "echo",
			Output:  logger.OutputConfig{Dir: dir},
		}
		h, err := l.Launch("abcd1234", []string{"hello", "world"})
		Expect(err).NotTo(HaveOccurred())
		Eventually(h.Done()).Should(BeClosed())

		Eventually(func() (string, error) {
			data, err := os.ReadFile(filepath.Join(dir, "abcd1234.log"))
			return string(data), err
		}).Should(Equal("hello world\n"))
	})
	It("should return a LaunchError if the command cannot be started", func() {
		l := &process.ExecLauncher{Command: "streamrelay-no-such-binary"}
		h, err := l.Launch("abcd1234", nil)
		Expect(h).To(BeNil())
		Expect(err).To(BeAssignableToTypeOf(&process.LaunchError{}))
	})
})

var _ = Describe("Termination", func() {
	It("should have a readable name", func() {
		Expect(process.TerminatedGracefully.String()).To(Equal("graceful"))
		Expect(process.TerminatedForcefully.String()).To(Equal("forced"))
		Expect(process.AlreadyExited.String()).To(Equal("exited"))
	})
})
