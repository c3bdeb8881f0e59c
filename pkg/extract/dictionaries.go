package extract

// Term dictionaries are declarative data: lowercase match term mapped to
// its display name. New terms are added here without touching the
// extraction layers.

var technologyTerms = map[string]string{
	"golang":        "Go",
	"python":        "Python",
	"java":          "Java",
	"javascript":    "JavaScript",
	"typescript":    "TypeScript",
	"rust":          "Rust",
	"c++":           "C++",
	"kotlin":        "Kotlin",
	"swift":         "Swift",
	"ruby":          "Ruby",
	"php":           "PHP",
	"sql":           "SQL",
	"postgresql":    "PostgreSQL",
	"postgres":      "PostgreSQL",
	"mysql":         "MySQL",
	"sqlite":        "SQLite",
	"mongodb":       "MongoDB",
	"redis":         "Redis",
	"neo4j":         "Neo4j",
	"elasticsearch": "Elasticsearch",
	"kafka":         "Kafka",
	"rabbitmq":      "RabbitMQ",
	"docker":        "Docker",
	"kubernetes":    "Kubernetes",
	"terraform":     "Terraform",
	"ansible":       "Ansible",
	"linux":         "Linux",
	"react":         "React",
	"angular":       "Angular",
	"vue":           "Vue",
	"django":        "Django",
	"flask":         "Flask",
	"spring":        "Spring",
	"node.js":       "Node.js",
	"nodejs":        "Node.js",
	"graphql":       "GraphQL",
	"grpc":          "gRPC",
	"rest api":      "REST API",
	"tensorflow":    "TensorFlow",
	"pytorch":       "PyTorch",
	"aws":           "AWS",
	"azure":         "Azure",
	"gcp":           "GCP",
	"git":           "Git",
	"github":        "GitHub",
	"gitlab":        "GitLab",
	"jenkins":       "Jenkins",
	"prometheus":    "Prometheus",
	"grafana":       "Grafana",
	"nginx":         "Nginx",
	"oauth":         "OAuth",
	"jwt":           "JWT",
	"tls":           "TLS",
	"http":          "HTTP",
	"https":         "HTTPS",
	"tcp":           "TCP",
	"udp":           "UDP",
	"dns":           "DNS",
	"api":           "API",
	"json":          "JSON",
	"xml":           "XML",
	"yaml":          "YAML",
	"csv":           "CSV",
	"html":          "HTML",
	"css":           "CSS",
}

// domainDictionaries hold optional domain-specific term sets, selected by
// the Domain extraction option.
var domainDictionaries = map[string]map[string]string{
	"software": {
		"microservice":           "Microservice",
		"microservices":          "Microservices",
		"monolith":               "Monolith",
		"refactoring":            "Refactoring",
		"continuous integration": "Continuous Integration",
		"continuous deployment":  "Continuous Deployment",
		"unit test":              "Unit Test",
		"integration test":       "Integration Test",
		"code review":            "Code Review",
		"pull request":           "Pull Request",
		"technical debt":         "Technical Debt",
		"design pattern":         "Design Pattern",
		"dependency injection":   "Dependency Injection",
		"event sourcing":         "Event Sourcing",
		"message queue":          "Message Queue",
		"load balancer":          "Load Balancer",
		"cache":                  "Cache",
		"middleware":             "Middleware",
		"sdk":                    "SDK",
		"cli":                    "CLI",
	},
	"business": {
		"revenue":            "Revenue",
		"profit margin":      "Profit Margin",
		"quarterly report":   "Quarterly Report",
		"stakeholder":        "Stakeholder",
		"roi":                "ROI",
		"kpi":                "KPI",
		"merger":             "Merger",
		"acquisition":        "Acquisition",
		"due diligence":      "Due Diligence",
		"market share":       "Market Share",
		"supply chain":       "Supply Chain",
		"balance sheet":      "Balance Sheet",
		"cash flow":          "Cash Flow",
		"fiscal year":        "Fiscal Year",
		"valuation":          "Valuation",
		"ipo":                "IPO",
		"venture capital":    "Venture Capital",
		"board of directors": "Board of Directors",
	},
	"academic": {
		"hypothesis":               "Hypothesis",
		"methodology":              "Methodology",
		"peer review":              "Peer Review",
		"literature review":        "Literature Review",
		"citation":                 "Citation",
		"abstract":                 "Abstract",
		"dissertation":             "Dissertation",
		"thesis":                   "Thesis",
		"empirical":                "Empirical",
		"qualitative":              "Qualitative",
		"quantitative":             "Quantitative",
		"sample size":              "Sample Size",
		"control group":            "Control Group",
		"statistical significance": "Statistical Significance",
		"research question":        "Research Question",
	},
	"legal": {
		"contract":              "Contract",
		"liability":             "Liability",
		"indemnification":       "Indemnification",
		"jurisdiction":          "Jurisdiction",
		"plaintiff":             "Plaintiff",
		"defendant":             "Defendant",
		"intellectual property": "Intellectual Property",
		"trademark":             "Trademark",
		"patent":                "Patent",
		"copyright":             "Copyright",
		"nda":                   "NDA",
		"terms of service":      "Terms of Service",
		"compliance":            "Compliance",
		"due process":           "Due Process",
		"arbitration":           "Arbitration",
		"statute":               "Statute",
	},
}
