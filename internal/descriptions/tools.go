package descriptions

// Tool descriptions shown to MCP clients

const (
	DetectFieldsDescription = `Find the fillable fields of a legal form (DOCX or PDF).

**When to use:** Before turning a static form into a template, or to understand which information a form asks for.

**What it finds:**
• Checkboxes such as "[ ]" or "[X]" with the option they belong to
• Blank lines of underscores ("Case Number: _____") with their length
• Labeled inputs ("Name:", "Enter Address", "Email (required)")
• Empty table cells next to a label cell

Every field carries a label and a context, "Section: <header>" when a section title precedes it. The form is also classified by area of law (family, housing, probate, civil, criminal, small claims, employment).

**Examples:**
• "Which fields does petition.docx contain?"
• "List the checkboxes of family/custody-form.docx as JSON"

**Best practices:** Use format=json for programmatic use. PDF input yields text-based fields only (no tables or section headers).`

	RewritePlaceholdersDescription = `Write a template copy of a DOCX form with placeholder tokens.

**When to use:** Preparing a form for programmatic filling.

**Behavior:** Every run of five underscores becomes "$Line" and every empty checkbox ("[]", "[ ]", "[  ]") becomes "[$C]" in body paragraphs, table cells and page headers/footers. The source document is never modified; the copy goes to output_path or to the templates directory.

**Examples:**
• "Create a template from petition.docx"
• "Rewrite forms/lease.docx into templates/lease-template.docx"

**Best practices:** Run detect_fields first to check what will be replaced. Running the tool again on a template changes nothing.`

	ExtractTextDescription = `Export the plain text of a DOCX or PDF document.

**When to use:** Reading or quoting a form, or checking why a field was or was not detected.

**Output:** Table cell text, paragraphs, content controls ("tag: text"), field codes and text boxes, one entry per line.`

	DocumentMetadataDescription = `Read the document properties of a DOCX or PDF file.

**When to use:** Cataloguing forms or checking title, author, revision and dates.

**Output:** Title, subject, author, keywords, dates, revision and custom properties (DOCX), or the PDF info dictionary and page count.`

	UpdatePDFMetadataDescription = `Write a copy of a PDF with new document properties.

**When to use:** Tagging a PDF form with a title, subject or keywords.

**Parameters:** properties is an object of property names to values, e.g. {"Title": "Petition", "Keywords": "custody"}.

**Best practices:** The source file is left untouched; the copy goes to output_path or to the templates directory.`

	SearchDocumentsDescription = `Search for DOCX and PDF forms in a directory with optional fuzzy search.

**When to use:** Finding a form by part of its name before detecting or rewriting it.

**Examples:**
• "Find all custody forms" (query=custody)
• "List every form under family/" (directory=family)

**Best practices:** Words in the query may match in any order ("support 2024" matches "Child-Support (2024).docx").`

	BatchDetectDescription = `Detect fields in every form of a directory.

**When to use:** Surveying a folder of forms at once.

**Output:** Per document success or failure with field counts by type and the area of law, plus totals. One unreadable document does not stop the run.`

	SuggestPlaceholdersDescription = `Ask the configured language model for placeholder names for each detected field.

**When to use:** Naming template variables with the schema $FieldType_FieldVarType_Fieldname, e.g. $check_bool_Respondent or $line_string_CaseNumber.

**Best practices:** Suggestions are proposals; review them before using them in templates. Only available when an Ollama model is configured.`

	ServerInfoDescription = `Get server information, configured directories, available tools and the forms found in the document directory.

**When to use:** At the start of a session to discover what the server can do and which forms are available.`
)
