// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

// JSON field names reported in validation errors.
const (
	FieldContent      = "content"
	FieldSubject      = "subject"
	FieldRecipientIDs = "recipientIds"
	FieldMediaURLs    = "mediaUrls"
	FieldMessageType  = "messageType"
	FieldMessageID    = "messageId"
	FieldType         = "type"
)
