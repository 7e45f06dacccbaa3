// Package snsxml implements the SNS query-protocol action router (spec.md
// §6): POST / form-encoded with an Action field, XML response bodies.
package snsxml

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/chris-alexander-pop/cloudstub/internal/apperrors"
	"github.com/chris-alexander-pop/cloudstub/internal/awsproto"
	"github.com/chris-alexander-pop/cloudstub/internal/httpapi"
	"github.com/chris-alexander-pop/cloudstub/internal/publisher"
	"github.com/chris-alexander-pop/cloudstub/internal/queue"
	"github.com/chris-alexander-pop/cloudstub/internal/registry"
)

// Handler dispatches SNS query-protocol Actions onto the topic registry and
// publisher.
type Handler struct {
	Topics    *registry.TopicRegistry
	Publisher *publisher.Publisher
	Endpoints awsproto.Endpoints
}

const xmlns = "http://sns.amazonaws.com/doc/2010-03-31/"

// Route reads the Action form field and dispatches to the named action.
// GetCallerIdentity (an STS action real SDKs sometimes probe for against
// the same endpoint) is stubbed per spec.md §6.
func (h *Handler) Route(c echo.Context) error {
	if err := c.Request().ParseForm(); err != nil {
		return writeError(c, apperrors.InvalidParameterValue("malformed form body"))
	}
	action := c.FormValue("Action")

	switch action {
	case "CreateTopic":
		return h.createTopic(c)
	case "DeleteTopic":
		return h.deleteTopic(c)
	case "ListTopics":
		return h.listTopics(c)
	case "GetTopicAttributes":
		return h.getTopicAttributes(c)
	case "SetTopicAttributes":
		return h.setTopicAttributes(c)
	case "Subscribe":
		return h.subscribe(c)
	case "Unsubscribe":
		return h.unsubscribe(c)
	case "ConfirmSubscription":
		return h.confirmSubscription(c)
	case "ListSubscriptions":
		return h.listSubscriptions(c)
	case "ListSubscriptionsByTopic":
		return h.listSubscriptionsByTopic(c)
	case "GetSubscriptionAttributes":
		return h.getSubscriptionAttributes(c)
	case "SetSubscriptionAttributes":
		return h.setSubscriptionAttributes(c)
	case "Publish":
		return h.publish(c)
	case "PublishBatch":
		return h.publishBatch(c)
	case "TagResource":
		return h.tagResource(c)
	case "UntagResource":
		return h.untagResource(c)
	case "ListTagsForResource":
		return h.listTagsForResource(c)
	case "GetCallerIdentity":
		return h.getCallerIdentity(c)
	default:
		return writeError(c, apperrors.New("InvalidAction", apperrors.KindClientInput, "unknown action: "+action, nil))
	}
}

type xmlError struct {
	XMLName xml.Name `xml:"ErrorResponse"`
	Type    string   `xml:"Error>Type"`
	Code    string   `xml:"Error>Code"`
	Message string   `xml:"Error>Message"`
	ReqID   string   `xml:"RequestId"`
}

func writeError(c echo.Context, err error) error {
	ae, ok := apperrors.As(err)
	code := apperrors.CodeInternalError
	message := err.Error()
	errType := "Receiver"
	if ok {
		code = ae.Code
		message = ae.Message
		if ae.Kind == apperrors.KindClientInput {
			errType = "Sender"
		}
	}
	status := httpapi.StatusFor(err)
	return c.XML(status, xmlError{Type: errType, Code: code, Message: message, ReqID: "00000000-0000-0000-0000-000000000000"})
}

func requestMetadata() string {
	return "00000000-0000-0000-0000-000000000000"
}

// --- indexed form-field helpers (AWS query protocol lists keys as
// Prefix.N.Field rather than repeated form values) ---

func indexedEntries(values map[string][]string, prefix string) map[int]map[string]string {
	out := make(map[int]map[string]string)
	for key, vals := range values {
		if !strings.HasPrefix(key, prefix) || len(vals) == 0 {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		dot := strings.Index(rest, ".")
		if dot < 0 {
			continue
		}
		idxStr, field := rest[:dot], rest[dot+1:]
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		if out[idx] == nil {
			out[idx] = make(map[string]string)
		}
		out[idx][field] = vals[0]
	}
	return out
}

func sortedIndices(m map[int]map[string]string) []int {
	idxs := make([]int, 0, len(m))
	for i := range m {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	return idxs
}

func formAttributes(c echo.Context, prefix string) map[string]string {
	entries := indexedEntries(c.Request().Form, prefix)
	out := make(map[string]string, len(entries))
	for _, i := range sortedIndices(entries) {
		e := entries[i]
		if e["key"] != "" {
			out[e["key"]] = e["value"]
		}
	}
	return out
}

func formTags(c echo.Context, prefix string) map[string]string {
	entries := indexedEntries(c.Request().Form, prefix)
	out := make(map[string]string, len(entries))
	for _, i := range sortedIndices(entries) {
		e := entries[i]
		if e["Key"] != "" {
			out[e["Key"]] = e["Value"]
		}
	}
	return out
}

func formMessageAttributes(c echo.Context, prefix string) map[string]queue.MessageAttributeValue {
	entries := indexedEntries(c.Request().Form, prefix)
	if len(entries) == 0 {
		return nil
	}
	out := make(map[string]queue.MessageAttributeValue, len(entries))
	for _, i := range sortedIndices(entries) {
		e := entries[i]
		name := e["Name"]
		if name == "" {
			continue
		}
		out[name] = queue.MessageAttributeValue{
			DataType:    e["Value.DataType"],
			StringValue: e["Value.StringValue"],
		}
	}
	return out
}

// --- CreateTopic ---

type createTopicResponse struct {
	XMLName xml.Name `xml:"CreateTopicResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		TopicArn string `xml:"TopicArn"`
	} `xml:"CreateTopicResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) createTopic(c echo.Context) error {
	name := c.FormValue("Name")
	attrs := formAttributes(c, "Attributes.entry.")
	tags := formTags(c, "Tags.member.")

	t, err := h.Topics.CreateTopic(name, attrs, tags)
	if err != nil {
		return writeError(c, err)
	}

	resp := createTopicResponse{Xmlns: xmlns}
	resp.Result.TopicArn = t.ARN
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- DeleteTopic ---

type simpleActionResponse struct {
	XMLName  xml.Name
	Xmlns    string `xml:"xmlns,attr"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) deleteTopic(c echo.Context) error {
	arn := c.FormValue("TopicArn")
	if err := h.Topics.DeleteTopic(arn); err != nil {
		return writeError(c, err)
	}
	resp := simpleActionResponse{XMLName: xml.Name{Local: "DeleteTopicResponse"}, Xmlns: xmlns}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- ListTopics ---

type topicEntry struct {
	TopicArn string `xml:"TopicArn"`
}

type listTopicsResponse struct {
	XMLName xml.Name `xml:"ListTopicsResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Topics        []topicEntry `xml:"Topics>member"`
		NextToken     string       `xml:"NextToken,omitempty"`
	} `xml:"ListTopicsResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) listTopics(c echo.Context) error {
	arns, next := h.Topics.ListTopics(c.FormValue("NextToken"))
	resp := listTopicsResponse{Xmlns: xmlns}
	for _, arn := range arns {
		resp.Result.Topics = append(resp.Result.Topics, topicEntry{TopicArn: arn})
	}
	resp.Result.NextToken = next
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- GetTopicAttributes ---

type attributeEntry struct {
	Key   string `xml:"key"`
	Value string `xml:"value"`
}

type getTopicAttributesResponse struct {
	XMLName xml.Name `xml:"GetTopicAttributesResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Attributes []attributeEntry `xml:"Attributes>entry"`
	} `xml:"GetTopicAttributesResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) getTopicAttributes(c echo.Context) error {
	arn := c.FormValue("TopicArn")
	t, err := h.Topics.GetTopic(arn)
	if err != nil {
		return writeError(c, err)
	}

	all := make(map[string]string, len(t.Attributes)+6)
	for k, v := range t.Attributes {
		all[k] = v
	}
	all["TopicArn"] = t.ARN
	all["Owner"] = awsproto.DefaultAccount
	all["DisplayName"] = t.Attributes["DisplayName"]
	all["EffectiveDeliveryPolicy"] = `{"http":{"defaultHealthyRetryPolicy":{"minDelayTarget":20,"maxDelayTarget":20,"numRetries":3,"numMaxDelayRetries":0,"numNoDelayRetries":0,"numMinDelayRetries":0,"backoffFunction":"linear"},"disableSubscriptionOverrides":false}}`

	confirmed, pending, deleted := 0, 0, 0
	for _, sub := range h.Topics.Subscriptions(arn) {
		if sub.Confirmed {
			confirmed++
		} else {
			pending++
		}
		_ = sub
	}
	all["SubscriptionsConfirmed"] = strconv.Itoa(confirmed)
	all["SubscriptionsPending"] = strconv.Itoa(pending)
	all["SubscriptionsDeleted"] = strconv.Itoa(deleted)

	resp := getTopicAttributesResponse{Xmlns: xmlns}
	for k, v := range all {
		resp.Result.Attributes = append(resp.Result.Attributes, attributeEntry{Key: k, Value: v})
	}
	sort.Slice(resp.Result.Attributes, func(i, j int) bool { return resp.Result.Attributes[i].Key < resp.Result.Attributes[j].Key })
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- SetTopicAttributes ---

func (h *Handler) setTopicAttributes(c echo.Context) error {
	arn := c.FormValue("TopicArn")
	name := c.FormValue("AttributeName")
	value := c.FormValue("AttributeValue")
	if err := h.Topics.SetTopicAttributes(arn, name, value); err != nil {
		return writeError(c, err)
	}
	resp := simpleActionResponse{XMLName: xml.Name{Local: "SetTopicAttributesResponse"}, Xmlns: xmlns}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- Subscribe ---

type subscribeResponse struct {
	XMLName xml.Name `xml:"SubscribeResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		SubscriptionArn string `xml:"SubscriptionArn"`
	} `xml:"SubscribeResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) subscribe(c echo.Context) error {
	topicArn := c.FormValue("TopicArn")
	protocol := c.FormValue("Protocol")
	endpoint := c.FormValue("Endpoint")
	attrs := formAttributes(c, "Attributes.entry.")

	s, err := h.Topics.Subscribe(topicArn, protocol, endpoint, attrs)
	if err != nil {
		return writeError(c, err)
	}
	resp := subscribeResponse{Xmlns: xmlns}
	resp.Result.SubscriptionArn = s.ARN
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- Unsubscribe ---

func (h *Handler) unsubscribe(c echo.Context) error {
	arn := c.FormValue("SubscriptionArn")
	if err := h.Topics.Unsubscribe(arn); err != nil {
		return writeError(c, err)
	}
	resp := simpleActionResponse{XMLName: xml.Name{Local: "UnsubscribeResponse"}, Xmlns: xmlns}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- ConfirmSubscription ---

type confirmSubscriptionResponse struct {
	XMLName xml.Name `xml:"ConfirmSubscriptionResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		SubscriptionArn string `xml:"SubscriptionArn"`
	} `xml:"ConfirmSubscriptionResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

// confirmSubscription is a no-op: every "sqs" protocol subscription this
// core creates is already confirmed at Subscribe time (spec.md §4.3), so
// this exists only so clients that call it unconditionally don't error.
func (h *Handler) confirmSubscription(c echo.Context) error {
	token := c.FormValue("Token")
	topicArn := c.FormValue("TopicArn")
	resp := confirmSubscriptionResponse{Xmlns: xmlns}
	resp.Result.SubscriptionArn = fmt.Sprintf("%s:%s", topicArn, token)
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- ListSubscriptions / ListSubscriptionsByTopic ---

type subscriptionEntry struct {
	SubscriptionArn string `xml:"SubscriptionArn"`
	Owner           string `xml:"Owner"`
	Protocol        string `xml:"Protocol"`
	Endpoint        string `xml:"Endpoint"`
	TopicArn        string `xml:"TopicArn"`
}

type listSubscriptionsResponse struct {
	XMLName xml.Name `xml:"ListSubscriptionsResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Subscriptions []subscriptionEntry `xml:"Subscriptions>member"`
		NextToken     string              `xml:"NextToken,omitempty"`
	} `xml:"ListSubscriptionsResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) listSubscriptions(c echo.Context) error {
	arns, next := h.Topics.ListSubscriptions(c.FormValue("NextToken"))
	resp := listSubscriptionsResponse{Xmlns: xmlns}
	for _, arn := range arns {
		if s, err := h.Topics.GetSubscription(arn); err == nil {
			resp.Result.Subscriptions = append(resp.Result.Subscriptions, subscriptionEntry{
				SubscriptionArn: s.ARN, Owner: awsproto.DefaultAccount, Protocol: s.Protocol, Endpoint: s.Endpoint, TopicArn: s.TopicArn,
			})
		}
	}
	resp.Result.NextToken = next
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

func (h *Handler) listSubscriptionsByTopic(c echo.Context) error {
	topicArn := c.FormValue("TopicArn")
	arns, next, err := h.Topics.ListSubscriptionsByTopic(topicArn, c.FormValue("NextToken"))
	if err != nil {
		return writeError(c, err)
	}
	var xmlResp listSubscriptionsResponse
	xmlResp.XMLName = xml.Name{Local: "ListSubscriptionsByTopicResponse"}
	xmlResp.Xmlns = xmlns
	for _, arn := range arns {
		if s, err := h.Topics.GetSubscription(arn); err == nil {
			xmlResp.Result.Subscriptions = append(xmlResp.Result.Subscriptions, subscriptionEntry{
				SubscriptionArn: s.ARN, Owner: awsproto.DefaultAccount, Protocol: s.Protocol, Endpoint: s.Endpoint, TopicArn: s.TopicArn,
			})
		}
	}
	xmlResp.Result.NextToken = next
	xmlResp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, xmlResp)
}

// --- GetSubscriptionAttributes / SetSubscriptionAttributes ---

type getSubscriptionAttributesResponse struct {
	XMLName xml.Name `xml:"GetSubscriptionAttributesResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Attributes []attributeEntry `xml:"Attributes>entry"`
	} `xml:"GetSubscriptionAttributesResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) getSubscriptionAttributes(c echo.Context) error {
	arn := c.FormValue("SubscriptionArn")
	s, err := h.Topics.GetSubscription(arn)
	if err != nil {
		return writeError(c, err)
	}
	all := make(map[string]string, len(s.Attributes)+4)
	for k, v := range s.Attributes {
		all[k] = v
	}
	all["SubscriptionArn"] = s.ARN
	all["TopicArn"] = s.TopicArn
	all["Protocol"] = s.Protocol
	all["Endpoint"] = s.Endpoint
	all["Owner"] = awsproto.DefaultAccount
	all["ConfirmationWasAuthenticated"] = "true"
	all["PendingConfirmation"] = strconv.FormatBool(!s.Confirmed)

	resp := getSubscriptionAttributesResponse{Xmlns: xmlns}
	for k, v := range all {
		resp.Result.Attributes = append(resp.Result.Attributes, attributeEntry{Key: k, Value: v})
	}
	sort.Slice(resp.Result.Attributes, func(i, j int) bool { return resp.Result.Attributes[i].Key < resp.Result.Attributes[j].Key })
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

func (h *Handler) setSubscriptionAttributes(c echo.Context) error {
	arn := c.FormValue("SubscriptionArn")
	name := c.FormValue("AttributeName")
	value := c.FormValue("AttributeValue")
	if err := h.Topics.SetSubscriptionAttributes(arn, name, value); err != nil {
		return writeError(c, err)
	}
	resp := simpleActionResponse{XMLName: xml.Name{Local: "SetSubscriptionAttributesResponse"}, Xmlns: xmlns}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- Publish / PublishBatch ---

type publishResponse struct {
	XMLName xml.Name `xml:"PublishResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		MessageId      string `xml:"MessageId"`
		SequenceNumber string `xml:"SequenceNumber,omitempty"`
	} `xml:"PublishResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func (h *Handler) publish(c echo.Context) error {
	topicArn := c.FormValue("TopicArn")
	message := c.FormValue("Message")
	subject := optionalString(c.FormValue("Subject"))
	groupID := c.FormValue("MessageGroupId")
	dedupID := c.FormValue("MessageDeduplicationId")
	attrs := formMessageAttributes(c, "MessageAttributes.entry.")

	res, err := h.Publisher.Publish(topicArn, message, attrs, subject, groupID, dedupID)
	if err != nil {
		return writeError(c, err)
	}
	resp := publishResponse{Xmlns: xmlns}
	resp.Result.MessageId = res.MessageID
	resp.Result.SequenceNumber = res.SequenceNumber
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

type publishBatchSuccessEntry struct {
	Id             string `xml:"Id"`
	MessageId      string `xml:"MessageId"`
	SequenceNumber string `xml:"SequenceNumber,omitempty"`
}

type publishBatchFailureEntry struct {
	Id          string `xml:"Id"`
	Code        string `xml:"Code"`
	Message     string `xml:"Message"`
	SenderFault bool   `xml:"SenderFault"`
}

type publishBatchResponse struct {
	XMLName xml.Name `xml:"PublishBatchResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Successful []publishBatchSuccessEntry `xml:"Successful>member"`
		Failed     []publishBatchFailureEntry `xml:"Failed>member"`
	} `xml:"PublishBatchResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) publishBatch(c echo.Context) error {
	topicArn := c.FormValue("TopicArn")
	entryRows := indexedEntries(c.Request().Form, "PublishBatchRequestEntries.member.")
	if len(entryRows) == 0 {
		return writeError(c, apperrors.EmptyBatchRequest())
	}
	if len(entryRows) > 10 {
		return writeError(c, apperrors.TooManyEntriesInBatch())
	}

	entries := make([]publisher.BatchEntry, 0, len(entryRows))
	for _, i := range sortedIndices(entryRows) {
		e := entryRows[i]
		prefix := fmt.Sprintf("PublishBatchRequestEntries.member.%d.MessageAttributes.entry.", i)
		entries = append(entries, publisher.BatchEntry{
			ID:         e["Id"],
			Message:    e["Message"],
			Subject:    optionalString(e["Subject"]),
			GroupID:    e["MessageGroupId"],
			DedupID:    e["MessageDeduplicationId"],
			Attributes: formMessageAttributes(c, prefix),
		})
	}

	results := h.Publisher.PublishBatch(topicArn, entries)

	resp := publishBatchResponse{Xmlns: xmlns}
	for _, r := range results {
		if r.Err != nil {
			ae, ok := apperrors.As(r.Err)
			code, message, senderFault := apperrors.CodeInternalError, r.Err.Error(), false
			if ok {
				code, message = ae.Code, ae.Message
				senderFault = ae.Kind == apperrors.KindClientInput
			}
			resp.Result.Failed = append(resp.Result.Failed, publishBatchFailureEntry{Id: r.ID, Code: code, Message: message, SenderFault: senderFault})
			continue
		}
		resp.Result.Successful = append(resp.Result.Successful, publishBatchSuccessEntry{Id: r.ID, MessageId: r.MessageID, SequenceNumber: r.SequenceNumber})
	}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- Tagging ---

func (h *Handler) tagResource(c echo.Context) error {
	arn := c.FormValue("ResourceArn")
	t, err := h.Topics.GetTopic(arn)
	if err != nil {
		return writeError(c, err)
	}
	for k, v := range formTags(c, "Tags.member.") {
		t.Tags.Set(k, v)
	}
	resp := simpleActionResponse{XMLName: xml.Name{Local: "TagResourceResponse"}, Xmlns: xmlns}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

func (h *Handler) untagResource(c echo.Context) error {
	arn := c.FormValue("ResourceArn")
	t, err := h.Topics.GetTopic(arn)
	if err != nil {
		return writeError(c, err)
	}
	for _, v := range c.Request().Form["TagKeys.member"] {
		t.Tags.Delete(v)
	}
	resp := simpleActionResponse{XMLName: xml.Name{Local: "UntagResourceResponse"}, Xmlns: xmlns}
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

type listTagsForResourceResponse struct {
	XMLName xml.Name `xml:"ListTagsForResourceResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Tags []struct {
			Key   string `xml:"Key"`
			Value string `xml:"Value"`
		} `xml:"Tags>member"`
	} `xml:"ListTagsForResourceResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) listTagsForResource(c echo.Context) error {
	arn := c.FormValue("ResourceArn")
	t, err := h.Topics.GetTopic(arn)
	if err != nil {
		return writeError(c, err)
	}
	resp := listTagsForResourceResponse{Xmlns: xmlns}
	t.Tags.Each(func(k, v string) {
		resp.Result.Tags = append(resp.Result.Tags, struct {
			Key   string `xml:"Key"`
			Value string `xml:"Value"`
		}{Key: k, Value: v})
	})
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}

// --- GetCallerIdentity stub (spec.md §6) ---

type getCallerIdentityResponse struct {
	XMLName xml.Name `xml:"GetCallerIdentityResponse"`
	Xmlns   string   `xml:"xmlns,attr"`
	Result  struct {
		Arn     string `xml:"Arn"`
		UserId  string `xml:"UserId"`
		Account string `xml:"Account"`
	} `xml:"GetCallerIdentityResult"`
	Metadata struct {
		RequestID string `xml:"RequestId"`
	} `xml:"ResponseMetadata"`
}

func (h *Handler) getCallerIdentity(c echo.Context) error {
	resp := getCallerIdentityResponse{Xmlns: "https://sts.amazonaws.com/doc/2011-06-15/"}
	resp.Result.Account = awsproto.DefaultAccount
	resp.Result.UserId = "AIDACKCEVSQ6C2EXAMPLE"
	resp.Result.Arn = fmt.Sprintf("arn:%s:iam::%s:root", awsproto.Partition, awsproto.DefaultAccount)
	resp.Metadata.RequestID = requestMetadata()
	return c.XML(http.StatusOK, resp)
}
