package library

// defaultBooks is the catalog written on first run.
var defaultBooks = []Book{
	{1, "C++ Programming Basics", "John Doe", 2019, 5},
	{2, "Data Structures and Algorithms", "Jane Smith", 2020, 3},
	{3, "Introduction to Machine Learning", "Alice Brown", 2021, 2},
	{4, "Database Management Systems", "Robert White", 2018, 4},
	{5, "The C++ Standard Library", "Bjarne Stroustrup", 2022, 6},
	{6, "Artificial Intelligence: A Modern Approach", "Stuart Russell", 2021, 3},
	{7, "Operating Systems Concepts", "Abraham Silberschatz", 2017, 5},
	{8, "Computer Networks", "Andrew Tanenbaum", 2019, 2},
	{9, "Clean Code", "Robert C. Martin", 2008, 4},
	{10, "The Pragmatic Programmer", "Andy Hunt", 1999, 2},
	{11, "Design Patterns", "Erich Gamma", 1994, 3},
	{12, "C++ Concurrency in Action", "Anthony Williams", 2020, 2},
	{13, "Python for Data Analysis", "Wes McKinney", 2018, 4},
	{14, "Learning React", "Alex Banks", 2022, 6},
	{15, "Introduction to Algorithms", "Thomas H. Cormen", 2009, 5},
	{16, "Hands-On Machine Learning", "Aurélien Géron", 2023, 3},
	{17, "Deep Learning", "Ian Goodfellow", 2016, 2},
	{18, "Head First Design Patterns", "Eric Freeman", 2004, 4},
	{19, "Computer Organization and Design", "David A. Patterson", 2021, 3},
	{20, "Modern Operating Systems", "Andrew S. Tanenbaum", 2018, 5},
}

// defaultBorrowers are pre-seeded ledger rows with nothing on loan.
var defaultBorrowers = []Borrower{
	{ID: 1, Name: "Dr. Emily Carter", Role: RoleFaculty, BorrowedOn: NoDate, DueOn: NoDate},
	{ID: 2, Name: "Prof. Robert Greene", Role: RoleFaculty, BorrowedOn: NoDate, DueOn: NoDate},
}

type seedAccount struct {
	id       int64
	username string
	role     Role
	password string
}

var defaultAccounts = []seedAccount{
	{1, "admin", RoleAdmin, "admin123"},
	{2, "faculty1", RoleFaculty, "faculty123"},
	{3, "student1", RoleStudent, "student123"},
}
