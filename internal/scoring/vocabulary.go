package scoring

import "sort"

// builtinSkills widens the extraction vocabulary beyond the profile so that
// skills the candidate lacks still show up as missing. Words that are also
// plain English (go, rest, swift) are left to the profile vocabulary.
var builtinSkills = []string{
	// languages
	"golang", "python", "java", "javascript", "typescript", "kotlin", "scala", "rust",
	"ruby", "php", "c++", "c#", "elixir", "haskell", "perl", "sql", "bash",
	// web
	"react", "angular", "vue", "next.js", "node.js", "django", "flask", "fastapi",
	"spring boot", "ruby on rails", ".net", "graphql", "grpc", "html", "css",
	// data
	"postgresql", "mysql", "sqlite", "mongodb", "redis", "cassandra", "elasticsearch",
	"kafka", "rabbitmq", "spark", "hadoop", "airflow", "dbt", "snowflake", "bigquery",
	"pandas", "numpy", "tableau", "power bi",
	// ml
	"machine learning", "deep learning", "pytorch", "tensorflow", "scikit-learn", "nlp",
	"computer vision", "llm",
	// infrastructure
	"aws", "azure", "google cloud", "docker", "kubernetes", "terraform", "ansible", "helm",
	"linux", "git", "ci/cd", "jenkins", "github actions", "prometheus", "grafana",
	"microservices", "distributed systems",
}

// vocabulary is the union of builtin skills, alias spellings and the
// candidate's own skills, longest first so multi-word names are tried early.
func vocabulary(userSkills []string) []string {
	set := make(map[string]struct{}, len(builtinSkills)+len(aliases)+len(userSkills))
	for _, s := range builtinSkills {
		set[s] = struct{}{}
	}
	for alias := range aliases {
		set[alias] = struct{}{}
	}
	for _, s := range userSkills {
		if s != "" {
			set[s] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}
