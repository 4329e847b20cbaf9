package services

import (
	"strings"
	"unicode"

	"subsidy-crm/crm-service/models"
)

// Guidance is the default description text and attachment requirement applied
// to milestones and tasks that were created without them.
type Guidance struct {
	Text               string
	RequiresAttachment bool
}

const genericGuidance = "Complete this step and record the outcome before closing it."

// taskGuidance is keyed by the normalized task or milestone name. Entries that
// produce a document for the application file require an attachment.
var taskGuidance = map[string]Guidance{
	"collect kyc documents":      {Text: "Collect PAN, Aadhaar and address proof from the client and upload scanned copies.", RequiresAttachment: true},
	"collect gst certificate":    {Text: "Obtain the client's GST registration certificate and upload it.", RequiresAttachment: true},
	"collect udyam certificate":  {Text: "Obtain the Udyam registration certificate and upload it.", RequiresAttachment: true},
	"prepare project report":     {Text: "Draft the detailed project report with cost estimates and upload the final PDF.", RequiresAttachment: true},
	"collect bank statements":    {Text: "Collect the last 12 months of bank statements and upload them.", RequiresAttachment: true},
	"file application":           {Text: "Submit the application on the department portal and upload the acknowledgement.", RequiresAttachment: true},
	"pay application fee":        {Text: "Pay the application fee and upload the payment receipt.", RequiresAttachment: true},
	"respond to query":           {Text: "Draft the clarification response, get it reviewed and upload the submitted copy.", RequiresAttachment: true},
	"attend hearing":             {Text: "Attend the scheduled hearing and record the minutes in a comment.", RequiresAttachment: false},
	"upload sanction letter":     {Text: "Upload the sanction letter received from the department.", RequiresAttachment: true},
	"verify sanction terms":      {Text: "Verify the sanctioned amount and conditions against the application.", RequiresAttachment: false},
	"submit disbursement claim":  {Text: "Submit the disbursement claim with utilization proof and upload the claim copy.", RequiresAttachment: true},
	"confirm credit":             {Text: "Confirm the subsidy credit in the client's bank account and note the UTR.", RequiresAttachment: false},
	"client intake call":         {Text: "Hold the intake call and record eligibility notes in a comment.", RequiresAttachment: false},
	"eligibility check":          {Text: "Check scheme eligibility criteria against the client profile.", RequiresAttachment: false},
}

// stageGuidance is the fallback when the name lookup misses.
var stageGuidance = map[models.ProjectStage]string{
	models.StageDocumentation:    "Collect and verify the documents this scheme requires before filing.",
	models.StageApplicationFiled: "Track the filed application and keep the acknowledgement on record.",
	models.StageScrutiny:         "Monitor departmental scrutiny and log every interaction.",
	models.StageClarifications:   "Respond to departmental queries within the given deadline.",
	models.StageApproved:         "Verify sanction terms and prepare for disbursement.",
	models.StageDisbursed:        "Reconcile the disbursed amount and close out the engagement.",
}

// NormalizeGuidanceKey lowercases, strips punctuation and collapses runs of
// whitespace so "Collect  KYC-Documents!" matches "collect kyc documents".
func NormalizeGuidanceKey(name string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteByte(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// LookupGuidance resolves defaults for a task or milestone: name table first,
// then stage-generic text, then the generic instruction.
func LookupGuidance(name string, stage models.ProjectStage) Guidance {
	if g, ok := taskGuidance[NormalizeGuidanceKey(name)]; ok {
		return g
	}
	if text, ok := stageGuidance[stage]; ok {
		return Guidance{Text: text}
	}
	return Guidance{Text: genericGuidance}
}
