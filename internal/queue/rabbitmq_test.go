package queue

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeAcker struct {
	acked    int
	nacked   int
	requeued bool
}

func (f *fakeAcker) Ack(uint64, bool) error { f.acked++; return nil }
func (f *fakeAcker) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	f.requeued = requeue
	return nil
}
func (f *fakeAcker) Reject(_ uint64, requeue bool) error { return f.Nack(0, false, requeue) }

func TestSettle(t *testing.T) {
	tests := []struct {
		name     string
		disp     Disposition
		acked    int
		nacked   int
		requeued bool
	}{
		{"ack", Ack, 1, 0, false},
		{"requeue", Requeue, 0, 1, true},
		{"reject", Reject, 0, 1, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			acker := &fakeAcker{}
			settle(amqp.Delivery{Acknowledger: acker, DeliveryTag: 7}, tt.disp)
			if acker.acked != tt.acked || acker.nacked != tt.nacked || acker.requeued != tt.requeued {
				t.Fatalf("unexpected settle: %+v", acker)
			}
		})
	}
}
