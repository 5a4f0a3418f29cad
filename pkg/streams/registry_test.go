package streams_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kralicky/streamrelay/pkg/process/processtest"
	"github.com/kralicky/streamrelay/pkg/streams"
)

func newRecord(id string) *streams.Record {
	return &streams.Record{
		ID:          id,
		Source:      "http://example.com/" + id + ".m3u8",
		Destination: "rtmp://host/live/" + id,
		StartedAt:   time.Now(),
		Bitrate:     "3500k",
		Handle:      processtest.NewHandle(id, 1, nil, 0),
	}
}

func ids(recs []*streams.Record) []string {
	var out []string
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

var _ = Describe("NewID", func() {
	It("should generate short hex ids", func() {
		id := streams.NewID()
		Expect(id).To(HaveLen(streams.IDLength))
		Expect(id).To(MatchRegexp("^[0-9a-f]+$"))
	})
	It("should not repeat ids", func() {
		seen := make(map[string]struct{})
		for i := 0; i < 1000; i++ {
			seen[streams.NewID()] = struct{}{}
		}
		Expect(seen).To(HaveLen(1000))
	})
})

var _ = Describe("Registry", func() {
	var reg *streams.Registry
	BeforeEach(func() {
		reg = streams.NewRegistry()
	})

	When("the registry is empty", func() {
		It("should list nothing", func() {
			Expect(reg.List()).To(BeEmpty())
			Expect(reg.Len()).To(Equal(0))
			Expect(reg.RemoveAll()).To(BeEmpty())
		})
		It("should not find any records", func() {
			_, err := reg.Get("missing")
			Expect(err).To(MatchError(streams.ErrNotFound))
			_, err = reg.Remove("missing")
			Expect(err).To(MatchError(streams.ErrNotFound))
		})
	})

	When("inserting records", func() {
		It("should list them in insertion order", func() {
			for _, id := range []string{"c", "a", "b"} {
				Expect(reg.Insert(newRecord(id))).To(Succeed())
			}
			Expect(ids(reg.List())).To(Equal([]string{"c", "a", "b"}))
			Expect(reg.Len()).To(Equal(3))
		})
		It("should reject duplicate ids", func() {
			Expect(reg.Insert(newRecord("a"))).To(Succeed())
			Expect(reg.Insert(newRecord("a"))).To(MatchError(streams.ErrDuplicate))
			Expect(reg.Len()).To(Equal(1))
		})
		It("should return the inserted record from Get", func() {
			rec := newRecord("a")
			Expect(reg.Insert(rec)).To(Succeed())
			Expect(reg.Get("a")).To(BeIdenticalTo(rec))
		})
	})

	When("removing records", func() {
		BeforeEach(func() {
			for _, id := range []string{"a", "b", "c"} {
				Expect(reg.Insert(newRecord(id))).To(Succeed())
			}
		})
		It("should remove and return the record", func() {
			rec, err := reg.Remove("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(rec.ID).To(Equal("b"))
			Expect(ids(reg.List())).To(Equal([]string{"a", "c"}))
			_, err = reg.Get("b")
			Expect(err).To(MatchError(streams.ErrNotFound))
		})
		It("should only remove the given instance with RemoveIf", func() {
			stale := newRecord("b")
			Expect(reg.RemoveIf(stale)).To(BeFalse())
			Expect(reg.Len()).To(Equal(3))

			cur, err := reg.Get("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(reg.RemoveIf(cur)).To(BeTrue())
			Expect(reg.RemoveIf(cur)).To(BeFalse())
			Expect(ids(reg.List())).To(Equal([]string{"a", "c"}))
		})
		It("should drain every record with RemoveAll", func() {
			Expect(ids(reg.RemoveAll())).To(Equal([]string{"a", "b", "c"}))
			Expect(reg.List()).To(BeEmpty())
			Expect(reg.Insert(newRecord("a"))).To(Succeed())
			Expect(ids(reg.List())).To(Equal([]string{"a"}))
		})
	})

	When("used concurrently", func() {
		It("should let exactly one of many concurrent removals succeed", func() {
			Expect(reg.Insert(newRecord("x"))).To(Succeed())
			var succeeded, notFound atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := reg.Remove("x"); err == nil {
						succeeded.Add(1)
					} else if errors.Is(err, streams.ErrNotFound) {
						notFound.Add(1)
					}
				}()
			}
			wg.Wait()
			Expect(succeeded.Load()).To(BeEquivalentTo(1))
			Expect(notFound.Load()).To(BeEquivalentTo(49))
		})
		It("should keep a consistent snapshot under concurrent inserts and reads", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				i := i
				wg.Add(2)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					Expect(reg.Insert(newRecord(fmt.Sprintf("s%d", i)))).To(Succeed())
				}()
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					for _, rec := range reg.List() {
						Expect(rec).NotTo(BeNil())
					}
				}()
			}
			wg.Wait()
			Expect(reg.Len()).To(Equal(20))
			Expect(reg.List()).To(HaveLen(20))
		})
	})
})
