package prompts

type PromptName string

const (
	PromptLearningPlan    PromptName = "learning_plan"
	PromptPracticeProblem PromptName = "practice_problem"
	PromptTutorChat       PromptName = "tutor_chat"
)
