package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	got []*sqs.SendMessageInput
	err error
}

func (c *captureQueue) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	c.got = append(c.got, in)
	if c.err != nil {
		return nil, c.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSNotifierEnqueuesEnvelope(t *testing.T) {
	q := &captureQueue{}
	n := NewSQSNotifier(q, "https://sqs.ap-south-1.amazonaws.com/123456789012/appointment-events", nil)
	n.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	b := sampleBooking()

	require.NoError(t, n.NotifyPaymentConfirmed(context.Background(), b))
	require.Len(t, q.got, 1)
	in := q.got[0]
	assert.Equal(t, "https://sqs.ap-south-1.amazonaws.com/123456789012/appointment-events", aws.ToString(in.QueueUrl))
	assert.Nil(t, in.MessageGroupId)
	assert.Equal(t, EventAppointmentPaid, aws.ToString(in.MessageAttributes["event"].StringValue))
	assert.Equal(t, b.AppointmentID.String(), aws.ToString(in.MessageAttributes["appointment_id"].StringValue))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &env))
	assert.Equal(t, EventAppointmentPaid, env.Event)
	assert.Equal(t, "2024-06-10T09:00:00Z", env.OccurredAt.Format(time.RFC3339))
	var payload Booking
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, b.PatientEmail, payload.PatientEmail)
}

func TestSQSNotifierFIFOGroupsByAppointment(t *testing.T) {
	q := &captureQueue{}
	n := NewSQSNotifier(q, "https://sqs.ap-south-1.amazonaws.com/123456789012/appointment-events.fifo", nil)
	b := sampleBooking()

	require.NoError(t, n.NotifyBookingConfirmed(context.Background(), b))
	require.NoError(t, n.NotifyConsultationSummary(context.Background(), ConsultationSummary{AppointmentID: b.AppointmentID}))
	require.Len(t, q.got, 2)
	for _, in := range q.got {
		assert.Equal(t, b.AppointmentID.String(), aws.ToString(in.MessageGroupId))
	}
	assert.Equal(t, "appointment.booked:"+b.AppointmentID.String(), aws.ToString(q.got[0].MessageDeduplicationId))
	assert.Equal(t, "consultation.completed:"+b.AppointmentID.String(), aws.ToString(q.got[1].MessageDeduplicationId))
}

func TestSQSNotifierErrors(t *testing.T) {
	n := NewSQSNotifier(&captureQueue{err: errors.New("AWS.SimpleQueueService.NonExistentQueue")}, "https://sqs/q", nil)
	assert.ErrorContains(t, n.NotifyBookingConfirmed(context.Background(), sampleBooking()), "NonExistentQueue")

	assert.Error(t, NewSQSNotifier(nil, "https://sqs/q", nil).NotifyBookingConfirmed(context.Background(), sampleBooking()))
	assert.Error(t, NewSQSNotifier(&captureQueue{}, "", nil).NotifyBookingConfirmed(context.Background(), sampleBooking()))
}
