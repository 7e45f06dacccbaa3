// Package sqsjson implements the AmazonSQS.* JSON action router (spec.md
// §6): POST / with content-type application/x-amz-json-1.0 and header
// x-amz-target: AmazonSQS.<Action>.
package sqsjson

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
)

// Handler dispatches AmazonSQS.* actions onto the queue registry.
type Handler struct {
	Queues    *registry.QueueRegistry
	Endpoints awsproto.Endpoints
}

// Route reads x-amz-target and dispatches to the named action.
func (h *Handler) Route(c echo.Context) error {
	target := c.Request().Header.Get("x-amz-target")
	action := target
	if i := strings.LastIndex(target, "."); i >= 0 {
		action = target[i+1:]
	}

	switch action {
	case "CreateQueue":
		return h.createQueue(c)
	case "DeleteQueue":
		return h.deleteQueue(c)
	case "GetQueueUrl":
		return h.getQueueURL(c)
	case "ListQueues":
		return h.listQueues(c)
	case "GetQueueAttributes":
		return h.getQueueAttributes(c)
	case "SetQueueAttributes":
		return h.setQueueAttributes(c)
	case "PurgeQueue":
		return h.purgeQueue(c)
	case "SendMessage":
		return h.sendMessage(c)
	case "SendMessageBatch":
		return h.sendMessageBatch(c)
	case "ReceiveMessage":
		return h.receiveMessage(c)
	case "DeleteMessage":
		return h.deleteMessage(c)
	case "DeleteMessageBatch":
		return h.deleteMessageBatch(c)
	case "ChangeMessageVisibility":
		return h.changeMessageVisibility(c)
	case "ChangeMessageVisibilityBatch":
		return h.changeMessageVisibilityBatch(c)
	case "TagQueue":
		return h.tagQueue(c)
	case "UntagQueue":
		return h.untagQueue(c)
	case "ListQueueTags":
		return h.listQueueTags(c)
	default:
		return writeError(c, apperrors.New("InvalidAction", apperrors.KindClientInput, "unknown action: "+action, nil))
	}
}

func writeError(c echo.Context, err error) error {
	ae, ok := apperrors.As(err)
	code := apperrors.CodeInternalError
	message := err.Error()
	if ok {
		code = ae.Code
		message = ae.Message
	}
	status := httpapi.StatusFor(err)
	c.Response().Header().Set("x-amzn-errortype", code)
	return c.JSON(status, map[string]string{
		"__type":  "com.amazonaws.sqs#" + code,
		"message": message,
	})
}

func requestHost(c echo.Context) string {
	return c.Request().Host
}

type messageAttributeDTO struct {
	DataType    string `json:"DataType"`
	StringValue string `json:"StringValue,omitempty"`
	BinaryValue []byte `json:"BinaryValue,omitempty"`
}

func toDomainAttrs(in map[string]messageAttributeDTO) map[string]queue.MessageAttributeValue {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]queue.MessageAttributeValue, len(in))
	for k, v := range in {
		out[k] = queue.MessageAttributeValue{DataType: v.DataType, StringValue: v.StringValue, BinaryValue: v.BinaryValue}
	}
	return out
}

func fromDomainAttrs(in map[string]queue.MessageAttributeValue) map[string]messageAttributeDTO {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]messageAttributeDTO, len(in))
	for k, v := range in {
		out[k] = messageAttributeDTO{DataType: v.DataType, StringValue: v.StringValue, BinaryValue: v.BinaryValue}
	}
	return out
}

// --- CreateQueue ---

type createQueueRequest struct {
	QueueName  string            `json:"QueueName"`
	Attributes map[string]string `json:"Attributes"`
	Tags       map[string]string `json:"tags"`
}

type createQueueResponse struct {
	QueueUrl string `json:"QueueUrl"`
}

func (h *Handler) createQueue(c echo.Context) error {
	var req createQueueRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.CreateQueue(requestHost(c), req.QueueName, req.Attributes, req.Tags)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, createQueueResponse{QueueUrl: q.URL()})
}

// --- DeleteQueue ---

type queueURLRequest struct {
	QueueUrl string `json:"QueueUrl"`
}

func (h *Handler) deleteQueue(c echo.Context) error {
	var req queueURLRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	if err := h.Queues.DeleteQueue(req.QueueUrl); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// --- GetQueueUrl ---

type getQueueURLRequest struct {
	QueueName string `json:"QueueName"`
}

func (h *Handler) getQueueURL(c echo.Context) error {
	var req getQueueURLRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.LookupByName(req.QueueName)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, createQueueResponse{QueueUrl: q.URL()})
}

// --- ListQueues ---

type listQueuesRequest struct {
	QueueNamePrefix string `json:"QueueNamePrefix"`
	NextToken       string `json:"NextToken"`
	MaxResults      int    `json:"MaxResults"`
}

type listQueuesResponse struct {
	QueueUrls []string `json:"QueueUrls"`
	NextToken string   `json:"NextToken,omitempty"`
}

func (h *Handler) listQueues(c echo.Context) error {
	var req listQueuesRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	urls, next := h.Queues.ListQueues(req.QueueNamePrefix, req.NextToken, req.MaxResults)
	return c.JSON(http.StatusOK, listQueuesResponse{QueueUrls: urls, NextToken: next})
}

// --- GetQueueAttributes ---

type getQueueAttributesRequest struct {
	QueueUrl       string   `json:"QueueUrl"`
	AttributeNames []string `json:"AttributeNames"`
}

type getQueueAttributesResponse struct {
	Attributes map[string]string `json:"Attributes"`
}

func (h *Handler) getQueueAttributes(c echo.Context) error {
	var req getQueueAttributesRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}

	all := q.Attributes().ToStringMap()
	for k, v := range q.ComputedAttributes() {
		all[k] = v
	}
	created, modified := q.Timestamps()
	all["QueueArn"] = q.ARN()
	all["CreatedTimestamp"] = strconv.FormatInt(created, 10)
	all["LastModifiedTimestamp"] = strconv.FormatInt(modified, 10)

	out := selectAttributes(all, req.AttributeNames)
	return c.JSON(http.StatusOK, getQueueAttributesResponse{Attributes: out})
}

func selectAttributes(all map[string]string, names []string) map[string]string {
	if len(names) == 0 || names[0] == "All" {
		return all
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := all[n]; ok {
			out[n] = v
		}
	}
	return out
}

// --- SetQueueAttributes ---

type setQueueAttributesRequest struct {
	QueueUrl   string            `json:"QueueUrl"`
	Attributes map[string]string `json:"Attributes"`
}

func (h *Handler) setQueueAttributes(c echo.Context) error {
	var req setQueueAttributesRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	if err := q.SetAttributes(req.Attributes); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// --- PurgeQueue ---

func (h *Handler) purgeQueue(c echo.Context) error {
	var req queueURLRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	q.Purge()
	return c.JSON(http.StatusOK, map[string]any{})
}

// --- SendMessage ---

type sendMessageRequest struct {
	QueueUrl               string                         `json:"QueueUrl"`
	MessageBody            string                         `json:"MessageBody"`
	DelaySeconds           *int                           `json:"DelaySeconds"`
	MessageAttributes      map[string]messageAttributeDTO `json:"MessageAttributes"`
	MessageGroupId         string                         `json:"MessageGroupId"`
	MessageDeduplicationId string                         `json:"MessageDeduplicationId"`
}

type sendMessageResponse struct {
	MessageId              string `json:"MessageId"`
	MD5OfMessageBody        string `json:"MD5OfMessageBody"`
	MD5OfMessageAttributes string `json:"MD5OfMessageAttributes,omitempty"`
	SequenceNumber         string `json:"SequenceNumber,omitempty"`
}

func (h *Handler) sendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}

	msg, err := q.NewMessage(req.MessageBody, toDomainAttrs(req.MessageAttributes), req.MessageGroupId, req.MessageDeduplicationId, req.DelaySeconds)
	if err != nil {
		return writeError(c, err)
	}
	rec, dup := q.EnqueueDeduplicated(msg)
	if dup {
		return c.JSON(http.StatusOK, sendMessageResponse{
			MessageId:      rec.MessageID,
			SequenceNumber: rec.SequenceNumber,
		})
	}
	return c.JSON(http.StatusOK, sendMessageResponse{
		MessageId:              msg.MessageID,
		MD5OfMessageBody:        msg.BodyDigest,
		MD5OfMessageAttributes: msg.AttributesDigest,
		SequenceNumber:         rec.SequenceNumber,
	})
}

// --- SendMessageBatch ---

type sendMessageBatchEntry struct {
	Id                     string                         `json:"Id"`
	MessageBody            string                         `json:"MessageBody"`
	DelaySeconds           *int                           `json:"DelaySeconds"`
	MessageAttributes      map[string]messageAttributeDTO `json:"MessageAttributes"`
	MessageGroupId         string                         `json:"MessageGroupId"`
	MessageDeduplicationId string                         `json:"MessageDeduplicationId"`
}

type sendMessageBatchRequest struct {
	QueueUrl string                  `json:"QueueUrl"`
	Entries  []sendMessageBatchEntry `json:"Entries"`
}

type batchResultEntrySuccess struct {
	Id                     string `json:"Id"`
	MessageId              string `json:"MessageId"`
	MD5OfMessageBody        string `json:"MD5OfMessageBody"`
	MD5OfMessageAttributes string `json:"MD5OfMessageAttributes,omitempty"`
	SequenceNumber         string `json:"SequenceNumber,omitempty"`
}

type batchResultEntryFailure struct {
	Id          string `json:"Id"`
	SenderFault bool   `json:"SenderFault"`
	Code        string `json:"Code"`
	Message     string `json:"Message"`
}

type sendMessageBatchResponse struct {
	Successful []batchResultEntrySuccess `json:"Successful"`
	Failed     []batchResultEntryFailure `json:"Failed"`
}

func (h *Handler) sendMessageBatch(c echo.Context) error {
	var req sendMessageBatchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	if len(req.Entries) == 0 {
		return writeError(c, apperrors.EmptyBatchRequest())
	}
	if len(req.Entries) > 10 {
		return writeError(c, apperrors.TooManyEntriesInBatch())
	}
	if err := checkDistinctIDs(entryIDs(req.Entries)); err != nil {
		return writeError(c, err)
	}

	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}

	resp := sendMessageBatchResponse{}
	for _, e := range req.Entries {
		msg, err := q.NewMessage(e.MessageBody, toDomainAttrs(e.MessageAttributes), e.MessageGroupId, e.MessageDeduplicationId, e.DelaySeconds)
		if err != nil {
			resp.Failed = append(resp.Failed, toFailure(e.Id, err))
			continue
		}
		rec, dup := q.EnqueueDeduplicated(msg)
		if dup {
			resp.Successful = append(resp.Successful, batchResultEntrySuccess{
				Id:             e.Id,
				MessageId:      rec.MessageID,
				SequenceNumber: rec.SequenceNumber,
			})
			continue
		}
		resp.Successful = append(resp.Successful, batchResultEntrySuccess{
			Id:                     e.Id,
			MessageId:              msg.MessageID,
			MD5OfMessageBody:        msg.BodyDigest,
			MD5OfMessageAttributes: msg.AttributesDigest,
			SequenceNumber:         rec.SequenceNumber,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

func entryIDs[T interface{ id() string }](entries []T) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.id()
	}
	return out
}

func (e sendMessageBatchEntry) id() string { return e.Id }

func checkDistinctIDs(ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return apperrors.BatchEntryIDsNotDistinct()
		}
		seen[id] = true
	}
	return nil
}

func toFailure(id string, err error) batchResultEntryFailure {
	ae, ok := apperrors.As(err)
	if !ok {
		return batchResultEntryFailure{Id: id, SenderFault: false, Code: apperrors.CodeInternalError, Message: err.Error()}
	}
	return batchResultEntryFailure{
		Id:          id,
		SenderFault: ae.Kind == apperrors.KindClientInput,
		Code:        ae.Code,
		Message:     ae.Message,
	}
}

// --- ReceiveMessage ---

type receiveMessageRequest struct {
	QueueUrl            string `json:"QueueUrl"`
	MaxNumberOfMessages int    `json:"MaxNumberOfMessages"`
	VisibilityTimeout   *int   `json:"VisibilityTimeout"`
	WaitTimeSeconds     *int   `json:"WaitTimeSeconds"`
}

type receivedMessageDTO struct {
	MessageId              string                         `json:"MessageId"`
	ReceiptHandle          string                         `json:"ReceiptHandle"`
	Body                   string                         `json:"Body"`
	MD5OfBody              string                         `json:"MD5OfBody"`
	MD5OfMessageAttributes string                         `json:"MD5OfMessageAttributes,omitempty"`
	MessageAttributes      map[string]messageAttributeDTO `json:"MessageAttributes,omitempty"`
	Attributes             map[string]string              `json:"Attributes,omitempty"`
}

type receiveMessageResponse struct {
	Messages []receivedMessageDTO `json:"Messages"`
}

func (h *Handler) receiveMessage(c echo.Context) error {
	var req receiveMessageRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}

	max := req.MaxNumberOfMessages
	if max == 0 {
		max = 1
	} else if max < 1 || max > 10 {
		return writeError(c, apperrors.InvalidParameterValue("MaxNumberOfMessages must be between 1 and 10"))
	}

	waitSeconds := q.Attributes().ReceiveMessageWaitTimeSeconds
	if req.WaitTimeSeconds != nil {
		waitSeconds = *req.WaitTimeSeconds
		if waitSeconds < 0 || waitSeconds > 20 {
			return writeError(c, apperrors.InvalidParameterValue("WaitTimeSeconds must be between 0 and 20"))
		}
	}

	msgs, err := q.Receive(max, req.VisibilityTimeout, waitSeconds, h.dlqLookup)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]receivedMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, receivedMessageDTO{
			MessageId:              m.MessageID,
			ReceiptHandle:          m.ReceiptHandle,
			Body:                   m.Body,
			MD5OfBody:              m.BodyDigest,
			MD5OfMessageAttributes: m.AttributesDigest,
			MessageAttributes:      fromDomainAttrs(m.MessageAttributes),
			Attributes:             receiveAttributes(m),
		})
	}
	return c.JSON(http.StatusOK, receiveMessageResponse{Messages: out})
}

func receiveAttributes(m queue.ReceivedMessage) map[string]string {
	attrs := map[string]string{
		"ApproximateReceiveCount":          strconv.Itoa(m.ApproximateReceiveCount),
		"SentTimestamp":                    strconv.FormatInt(m.SentTimestamp, 10),
		"ApproximateFirstReceiveTimestamp": strconv.FormatInt(m.ApproximateFirstReceiveTimestamp, 10),
	}
	if m.MessageGroupID != "" {
		attrs["MessageGroupId"] = m.MessageGroupID
	}
	if m.DeduplicationID != "" {
		attrs["MessageDeduplicationId"] = m.DeduplicationID
	}
	if m.SequenceNumber != "" {
		attrs["SequenceNumber"] = m.SequenceNumber
	}
	return attrs
}

func (h *Handler) dlqLookup(arn string) (*queue.Queue, bool) {
	return h.Queues.LookupByARN(arn)
}

// --- DeleteMessage ---

type deleteMessageRequest struct {
	QueueUrl      string `json:"QueueUrl"`
	ReceiptHandle string `json:"ReceiptHandle"`
}

func (h *Handler) deleteMessage(c echo.Context) error {
	var req deleteMessageRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	q.DeleteMessage(req.ReceiptHandle)
	return c.JSON(http.StatusOK, map[string]any{})
}

// --- DeleteMessageBatch ---

type deleteMessageBatchEntry struct {
	Id            string `json:"Id"`
	ReceiptHandle string `json:"ReceiptHandle"`
}

func (e deleteMessageBatchEntry) id() string { return e.Id }

type deleteMessageBatchRequest struct {
	QueueUrl string                     `json:"QueueUrl"`
	Entries  []deleteMessageBatchEntry `json:"Entries"`
}

type deleteMessageBatchResponse struct {
	Successful []struct {
		Id string `json:"Id"`
	} `json:"Successful"`
	Failed []batchResultEntryFailure `json:"Failed"`
}

func (h *Handler) deleteMessageBatch(c echo.Context) error {
	var req deleteMessageBatchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	if len(req.Entries) == 0 {
		return writeError(c, apperrors.EmptyBatchRequest())
	}
	if len(req.Entries) > 10 {
		return writeError(c, apperrors.TooManyEntriesInBatch())
	}
	if err := checkDistinctIDs(entryIDs(req.Entries)); err != nil {
		return writeError(c, err)
	}

	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}

	var resp deleteMessageBatchResponse
	for _, e := range req.Entries {
		q.DeleteMessage(e.ReceiptHandle)
		resp.Successful = append(resp.Successful, struct {
			Id string `json:"Id"`
		}{Id: e.Id})
	}
	return c.JSON(http.StatusOK, resp)
}

// --- ChangeMessageVisibility ---

type changeMessageVisibilityRequest struct {
	QueueUrl          string `json:"QueueUrl"`
	ReceiptHandle     string `json:"ReceiptHandle"`
	VisibilityTimeout int    `json:"VisibilityTimeout"`
}

func (h *Handler) changeMessageVisibility(c echo.Context) error {
	var req changeMessageVisibilityRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	if err := q.ChangeVisibility(req.ReceiptHandle, req.VisibilityTimeout); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

// --- ChangeMessageVisibilityBatch ---

type changeMessageVisibilityBatchEntry struct {
	Id                string `json:"Id"`
	ReceiptHandle     string `json:"ReceiptHandle"`
	VisibilityTimeout int    `json:"VisibilityTimeout"`
}

func (e changeMessageVisibilityBatchEntry) id() string { return e.Id }

type changeMessageVisibilityBatchRequest struct {
	QueueUrl string                               `json:"QueueUrl"`
	Entries  []changeMessageVisibilityBatchEntry `json:"Entries"`
}

type changeMessageVisibilityBatchResponse struct {
	Successful []struct {
		Id string `json:"Id"`
	} `json:"Successful"`
	Failed []batchResultEntryFailure `json:"Failed"`
}

func (h *Handler) changeMessageVisibilityBatch(c echo.Context) error {
	var req changeMessageVisibilityBatchRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	if len(req.Entries) == 0 {
		return writeError(c, apperrors.EmptyBatchRequest())
	}
	if len(req.Entries) > 10 {
		return writeError(c, apperrors.TooManyEntriesInBatch())
	}
	if err := checkDistinctIDs(entryIDs(req.Entries)); err != nil {
		return writeError(c, err)
	}

	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}

	var resp changeMessageVisibilityBatchResponse
	for _, e := range req.Entries {
		if err := q.ChangeVisibility(e.ReceiptHandle, e.VisibilityTimeout); err != nil {
			resp.Failed = append(resp.Failed, toFailure(e.Id, err))
			continue
		}
		resp.Successful = append(resp.Successful, struct {
			Id string `json:"Id"`
		}{Id: e.Id})
	}
	return c.JSON(http.StatusOK, resp)
}

// --- Tagging ---

type tagQueueRequest struct {
	QueueUrl string            `json:"QueueUrl"`
	Tags     map[string]string `json:"Tags"`
}

func (h *Handler) tagQueue(c echo.Context) error {
	var req tagQueueRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	for k, v := range req.Tags {
		q.SetTag(k, v)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

type untagQueueRequest struct {
	QueueUrl string   `json:"QueueUrl"`
	TagKeys  []string `json:"TagKeys"`
}

func (h *Handler) untagQueue(c echo.Context) error {
	var req untagQueueRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	for _, k := range req.TagKeys {
		q.DeleteTag(k)
	}
	return c.JSON(http.StatusOK, map[string]any{})
}

type listQueueTagsResponse struct {
	Tags map[string]string `json:"Tags"`
}

func (h *Handler) listQueueTags(c echo.Context) error {
	var req queueURLRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed request body"))
	}
	q, err := h.Queues.Lookup(req.QueueUrl)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, listQueueTagsResponse{Tags: q.ListTags()})
}

var _ = json.Marshal // silence unused import if Bind ever swapped for manual decode
