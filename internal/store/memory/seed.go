package memory

import "github.com/Maahivarma/Exam-portal/internal/domain"

// Seed loads the same demo companies and tests as the postgres seed.
func (s *Store) Seed() {
	for _, c := range []domain.Company{
		{ID: "tcs", Name: "TCS"},
		{ID: "google", Name: "Google"},
		{ID: "microsoft", Name: "Microsoft"},
		{ID: "amazon", Name: "Amazon"},
		{ID: "wipro", Name: "Wipro"},
		{ID: "infosys", Name: "Infosys"},
		{ID: "facebook", Name: "Meta"},
		{ID: "apple", Name: "Apple"},
		{ID: "oracle", Name: "Oracle"},
		{ID: "ibm", Name: "IBM"},
	} {
		s.PutCompany(c)
	}

	s.PutTest(domain.Test{
		ID:        "tcs-backend-1",
		CompanyID: "tcs",
		Title:     "TCS Backend Mock",
		Duration:  20,
		Questions: []domain.Question{
			{
				QuestionID: "q1",
				Text:       "Which is a Python framework?",
				Position:   1,
				Body: domain.MCQ{Options: []domain.Option{
					{OptionID: "o1", Text: "React"},
					{OptionID: "o2", Text: "Django", Correct: true},
				}},
			},
			{
				QuestionID: "q2",
				Text:       "Explain REST API",
				Position:   2,
				Body:       domain.Subjective{},
			},
		},
	})

	s.PutTest(domain.Test{
		ID:        "g-ml-1",
		CompanyID: "google",
		Title:     "Google ML Mock",
		Duration:  30,
		Questions: []domain.Question{
			{
				QuestionID: "g1",
				Text:       "Overfitting meaning?",
				Position:   1,
				Body: domain.MCQ{Options: []domain.Option{
					{OptionID: "o1", Text: "Fits noise", Correct: true},
				}},
			},
		},
	})
}
