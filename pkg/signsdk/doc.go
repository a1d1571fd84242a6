// Package signsdk is the Go client for the signing service, and the home of
// the request and response types its HTTP handlers speak.
//
// Back-office calls go through the trusted edge and carry the gateway
// credential plus the acting company and user:
//
//	c := signsdk.NewSDKClient("http://signing:8080")
//	bo := c.BackOffice(gatewayKey, companyID, userID)
//	created, err := bo.CreateSignatureRequest(ctx, signsdk.CreateSignatureRequestRequest{...}, "idem-1")
//
// Signer calls are public and authenticate with the capability token that
// was handed to the signer when the request was created:
//
//	_, err = c.Consent(ctx, token)
//	res, err := c.Submit(ctx, signsdk.SubmitRequest{Token: token, SignatureImage: png})
//	if res.Preview != nil {
//		access, err := c.AccessPreview(ctx, signsdk.PreviewAccessRequest{...})
//	}
//
// Errors returned by the service decode to *APIError; use the Is helpers
// (IsNotFound, IsConflict, IsAccessDenied, IsTemporary) to branch on them.
package signsdk
