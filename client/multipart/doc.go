// Package multipart builds fully materialized multipart/form-data
// request bodies.
//
// A [Form] is handed to the body-construction callback of
// client.NewMultipartRequest, where any number of parts may be
// appended before the callback returns:
//
//	req, err := c.NewMultipartRequest(ctx, http.MethodPost, "/upload", nil,
//		func(f *multipart.Form) {
//			f.AppendFormField("caption", []byte("holiday"))
//			f.AppendFile("/tmp/photo.jpg", "image/jpeg", "photo.jpg")
//		})
//
// Append methods do not return errors. The first failure is retained
// and every later append becomes a no-op; the caller of the callback
// inspects [Form.Err] once construction finishes. Streaming bodies are
// out of scope: the form is serialized in full before the request is
// created.
package multipart
